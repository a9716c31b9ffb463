package config

import (
	"os"
	"testing"
)

func FuzzLoadConfig(f *testing.F) {
	// Seed with minimal valid config
	f.Add([]byte(`
[dataset]
path = "listings.csv"
[views.default]
mode = "ppsqm"
weights = [1, 1, 1]
`))

	// Seed with empty config
	f.Add([]byte(""))

	// Seed with mistyped values
	f.Add([]byte(`
[global]
logLevel = 3
[views.broken]
weights = ["a", 2, -1]
priceMax = "cheap"
types = [1, "Villa"]
`))

	// Seed with aliases only
	f.Add([]byte(`
[countryAliases]
USA = "United States"
UK = 4
`))

	f.Fuzz(func(t *testing.T, data []byte) {
		tmpDir := t.TempDir()
		configPath := tmpDir + "/fuzz.toml"
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return
		}
		// Should not panic; invalid configs return errors
		cfg, err := LoadConfig(configPath)
		if err == nil {
			_ = cfg.ValidateViews()
		}
	})
}

func FuzzParseWeights(f *testing.F) {
	f.Add("1,1,1")
	f.Add("0.2,0.5,0.3")
	f.Add("")
	f.Add("a,b,c")
	f.Add("1,2")
	f.Add("-1,0,1")
	f.Add("NaN,Inf,1")

	f.Fuzz(func(t *testing.T, s string) {
		w, err := ParseWeights(s)
		if err != nil {
			return
		}
		n := w.Normalize()
		sum := n.Neighbourhood + n.Connectivity + n.Satisfaction
		if sum < 0.999999 || sum > 1.000001 {
			t.Errorf("ParseWeights(%q) normalizes to sum %v", s, sum)
		}
	})
}
