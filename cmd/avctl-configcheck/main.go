// Command avctl-configcheck converts an operator-authored YAML device/group
// seed file into the canonical JSON config the core loads (spec.md §6
// mandates JSON on the hot path), and validates it: every device converts
// to a registry.Device, every group is well-formed, and the schedule's
// timezone/day names parse.
//
// Usage:
//
//	avctl-configcheck -in devices.yaml -out devices.json
//	avctl-configcheck -in devices.yaml          # validate only, no -out
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/venuecontrol/avctl/pkg/config"
)

func main() {
	var inPath, outPath string
	flag.StringVar(&inPath, "in", "", "Input YAML seed file (required)")
	flag.StringVar(&outPath, "out", "", "Output JSON config path (optional; validates only if omitted)")
	flag.Parse()

	if inPath == "" {
		fmt.Fprintln(os.Stderr, "avctl-configcheck: -in is required")
		os.Exit(2)
	}

	file, err := config.LoadYAML(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "avctl-configcheck: %v\n", err)
		os.Exit(1)
	}

	ok := validate(file)

	if outPath != "" {
		raw, err := json.MarshalIndent(file, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "avctl-configcheck: marshal: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(outPath, raw, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "avctl-configcheck: write: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", outPath)
	}

	if !ok {
		os.Exit(1)
	}
}

// validate reports every problem found and returns false if any device,
// group, or schedule field failed to convert.
func validate(file config.File) bool {
	ok := true

	devices, convErrs := file.Devices()
	for _, e := range convErrs {
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
		ok = false
	}
	fmt.Printf("devices: %d valid, %d rejected\n", len(devices), len(convErrs))

	groups := file.GroupValues()
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if seen[g.ID] {
			fmt.Fprintf(os.Stderr, "error: duplicate group id %q\n", g.ID)
			ok = false
		}
		seen[g.ID] = true
	}
	for _, d := range devices {
		if !seen[d.GroupID] {
			fmt.Fprintf(os.Stderr, "error: device %q references unknown group %q\n", d.ID, d.GroupID)
			ok = false
		}
	}
	fmt.Printf("groups: %d\n", len(groups))

	if _, err := file.Schedule.Location(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		ok = false
	}
	if _, err := file.Schedule.Weekdays(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		ok = false
	}

	return ok
}
