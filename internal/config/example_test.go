package config_test

import (
	"fmt"
	"log"
	"os"

	"github.com/robert-malhotra/s1-deburst/internal/config"
)

func ExampleLoad() {
	// Set required environment variable
	os.Setenv("STAC_BASE_URL", "https://stac.example.com")
	defer os.Unsetenv("STAC_BASE_URL")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Server: %s\n", cfg.Server.Address())
	fmt.Printf("Workers: %d\n", cfg.Processing.Workers)
	fmt.Printf("STAC Version: %s\n", cfg.STAC.Version)
	fmt.Printf("Catalog TTL: %s\n", cfg.Catalog.TTL)

	// Output:
	// Server: 0.0.0.0:8080
	// Workers: 4
	// STAC Version: 1.0.0
	// Catalog TTL: 1h0m0s
}

func ExampleParseJobs() {
	jf, err := config.ParseJobs([]byte(`jobs:
  - safe: S1A_IW_SLC__1SDV_20240501T120000_20240501T120027_053678_0683A1_1C2D.SAFE
    swaths: [1]
    bands: [VV, VH]
`))
	if err != nil {
		log.Fatal(err)
	}

	for _, job := range jf.Jobs {
		fmt.Printf("swaths=%v bands=%v\n", job.Swaths, job.Bands)
	}

	// Output:
	// swaths=[1] bands=[VV VH]
}
