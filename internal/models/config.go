package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// Model artifacts
	Models ModelConfig `yaml:"models"`

	// Supported languages for submissions (whitelist for detection)
	Languages []string `yaml:"languages"`
}

// ModelConfig points at the trained artifact directory.
type ModelConfig struct {
	Dir string `yaml:"dir"` // holds vectorizer.json, type_classifier.json, anomaly_iforest.json
}
