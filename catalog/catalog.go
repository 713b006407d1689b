// Package catalog describes the garment templates designs are drawn on and loads
// their images for compositing.
package catalog

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
)

type (
	// Asset describes one garment template.
	Asset struct {
		Name  string `toml:"name"`
		Image string `toml:"image"` // Path under Root, http(s) URL or data URL.
		Color string `toml:"color"`
	}

	// Catalog maps garments to their template assets.
	Catalog struct {
		// Root is the directory relative image paths are resolved against.
		Root     string                 `toml:"root"`
		Garments map[core.Garment]Asset `toml:"garments"`
	}
)

// Default returns the built-in catalog of standard garments.
func Default() *Catalog {
	return &Catalog{
		Root: ".",
		Garments: map[core.Garment]Asset{
			core.GarmentTShirt: {Name: "T-Shirt", Image: "assets/tshirt.png", Color: "#ffffff"},
			core.GarmentHoodie: {Name: "Hoodie", Image: "assets/hoodie.png", Color: "#ffffff"},
			core.GarmentPants:  {Name: "Pants", Image: "assets/pants.png", Color: "#ffffff"},
		},
	}
}

// Load reads a TOML catalog file. Garments missing from the file keep their defaults.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file Catalog
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	c := Default()
	if file.Root != "" {
		c.Root = file.Root
	}
	for g, asset := range file.Garments {
		if _, err := core.ParseGarment(string(g)); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		if g == core.GarmentCustom {
			return nil, fmt.Errorf("catalog %s: the custom garment comes from uploads and cannot be configured", path)
		}
		c.Garments[g] = asset
	}

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"root":     c.Root,
		"garments": len(c.Garments),
	}).Info("Loaded garment catalog")
	return c, nil
}

// Template returns the image reference for a standard garment.
func (c *Catalog) Template(g core.Garment) (string, bool) {
	asset, ok := c.Garments[g]
	if !ok || asset.Image == "" {
		return "", false
	}
	return asset.Image, true
}
