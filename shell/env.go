package shell

import (
	"os"
	"path/filepath"
)

type Environment struct {
	home   func() (string, error)
	config func() (string, error)
}

func NewEnvironment() *Environment {
	return &Environment{home: os.UserHomeDir, config: os.UserConfigDir}
}

func (this *Environment) LookupEnv(key string) (value string, set bool) {
	return os.LookupEnv(key)
}

// HomeDirectory falls back to the working directory when no home is known,
// which is the case for some service accounts.
func (this *Environment) HomeDirectory() string {
	if home, err := this.home(); err == nil && home != "" {
		return home
	}
	working, _ := os.Getwd()
	return working
}

func (this *Environment) ConfigDirectory() string {
	if config, err := this.config(); err == nil && config != "" {
		return filepath.Join(config, "keg")
	}
	return filepath.Join(this.HomeDirectory(), ".config", "keg")
}

func (this *Environment) CacheDirectory() string {
	return filepath.Join(this.HomeDirectory(), "Library", "Caches", "keg")
}
