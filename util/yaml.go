package util

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

func LoadFromYaml(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("Error reading yaml file %s: %v", filePath, err)
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("Error unmarshal yaml file %s: %v", filePath, err)
	}

	return nil
}
