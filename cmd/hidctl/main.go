package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/seagrayinc/hidlink/pkg/hid"
)

func main() {
	vid := flag.Uint("vid", 0, "vendor id of the device to open (0x prefix accepted)")
	pid := flag.Uint("pid", 0, "product id of the device to open (0x prefix accepted)")
	raw := flag.Bool("raw", false, "also list raw USB devices not exposed through a HID driver")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	mgr, err := hid.NewManager()
	if err != nil {
		slog.Error("hid manager init failed", slog.Any("error", err))
		os.Exit(1)
	}

	if *vid == 0 && *pid == 0 {
		os.Exit(list(mgr, *raw))
	}
	os.Exit(open(mgr, uint16(*vid), uint16(*pid)))
}

func list(mgr hid.Manager, raw bool) int {
	devices, err := mgr.List()
	if err != nil {
		slog.Error("enumeration failed", slog.Any("error", err))
		return 1
	}
	for _, d := range devices {
		fmt.Printf("%04x:%04x  %-24s %-24s %s\n", d.VendorID, d.ProductID, d.Manufacturer, d.Product, d.Path)
	}

	if raw {
		rawDevices, err := hid.ListRaw(0, 0)
		if err != nil {
			slog.Warn("raw USB enumeration failed", slog.Any("error", err))
			return 1
		}
		for _, d := range rawDevices {
			fmt.Printf("%04x:%04x  %-24s %-24s %s (raw)\n", d.VendorID, d.ProductID, d.Manufacturer, d.Product, d.Path)
		}
	}

	if len(devices) == 0 {
		slog.Info("no HID devices found")
	}
	return 0
}

func open(mgr hid.Manager, vid, pid uint16) int {
	dev, err := mgr.OpenVIDPID(vid, pid)
	if err != nil {
		slog.Error("open failed", slog.Any("error", err))
		return 1
	}
	defer dev.Close()

	caps := dev.Capabilities()
	fmt.Printf("device %04x:%04x opened\n", vid, pid)
	fmt.Printf("  input report length:   %d\n", caps.InputReportLength)
	fmt.Printf("  output report length:  %d\n", caps.OutputReportLength)
	fmt.Printf("  feature report length: %d\n", caps.FeatureReportLength)
	return 0
}
