package main

import (
	"log"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// ConfigFileName is the optional override file; if absent, the
// defaults below apply untouched.
var ConfigFileName = "echoserver.yml"

// Config holds everything needed to stand up the echo server.
type Config struct {
	Port     uint16 `koanf:"port"`
	NThreads int    `koanf:"nthreads"`
	Ipv6     bool   `koanf:"ipv6"`
}

var defaultConfig = Config{
	Port:     2007,
	NThreads: 2,
}

func loadConfig() Config {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig, "koanf"), nil); err != nil {
		log.Fatalf("echoserver: load default config: %v", err)
	}

	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			log.Fatalf("echoserver: load %s: %v", ConfigFileName, err)
		}
	}

	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatalf("echoserver: unmarshal config: %v", err)
	}
	return c
}
