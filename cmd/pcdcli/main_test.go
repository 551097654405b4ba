package main

import "testing"

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"scan.PLY":       ".PLY",
		"/tmp/a.b/c.xyz": ".xyz",
		"noext":          "",
		"a.b/noext":      "",
	}
	for in, want := range cases {
		if got := extOf(in); got != want {
			t.Errorf("extOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutputFormatPrefersExplicitFlag(t *testing.T) {
	cfg.format = "csv"
	cfg.out = "out.ply"
	defer func() { cfg.format = "" }()

	if got := outputFormat(); got != "csv" {
		t.Fatalf("outputFormat() = %q, want csv", got)
	}
}

func TestOutputFormatInfersFromExtension(t *testing.T) {
	cfg.format = ""
	cfg.out = "out.obj"
	if got := outputFormat(); got != "obj" {
		t.Fatalf("outputFormat() = %q, want obj", got)
	}
}
