package cmd

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Murchiz/Gpucompress/internal/config"
)

// ConfigInit writes the default configuration
func ConfigInit(path string, force bool) {
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Default().Write(path, force); err != nil {
		HandleError(err)
	}
	fmt.Printf("Wrote %s\n", path)
}

// ConfigShow prints the effective configuration
func ConfigShow(env *Env) {
	data, err := yaml.Marshal(env.Config)
	if err != nil {
		HandleError(err)
	}
	fmt.Print(string(data))
}
