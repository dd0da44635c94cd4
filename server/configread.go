package server

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/wire"
	"gopkg.in/yaml.v2"
)

// InitConfig sets the documented defaults.
func InitConfig(c *Config) {
	c.BindHost = "0.0.0.0"
	c.ChatPort = 8888
	c.VoicePort = 8889
	c.MaxFrameBytes = wire.DefaultMaxFrameBytes
	c.ReadTimeout = 5 * time.Minute
}

// ReadConfig builds the configuration from defaults, then the given YAML
// files in order, then VOICELINK_-prefixed environment variables.
func ReadConfig(filenames []string) (c Config, err error) {
	InitConfig(&c)

	err = ReadConfigFiles(filenames, &c)

	ReadConfigFromEnv("VOICELINK_", &c)

	return c, errors.Trace(err)
}

func ReadConfigFiles(filenames []string, c *Config) error {
	for _, filename := range filenames {
		if err := ReadConfigFile(filename, c); err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}

func ReadConfigFile(filename string, c *Config) (err error) {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Annotatef(err, "read config file: %s", filename)
	}

	defer f.Close()

	err = ReadConfigYAML(f, c)

	return errors.Annotatef(err, "read yaml config: %s", filename)
}

func ReadConfigYAML(reader io.Reader, c *Config) error {
	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(c); err != nil {
		return errors.Annotate(err, "decode yaml")
	}

	return nil
}

func ReadConfigFromEnv(prefix string, c *Config) {
	setEnvString(&c.BindHost, prefix+"BIND_HOST")
	setEnvInt(&c.ChatPort, prefix+"CHAT_PORT")
	setEnvInt(&c.VoicePort, prefix+"VOICE_PORT")
	setEnvUint32(&c.MaxFrameBytes, prefix+"MAX_FRAME_BYTES")
	setEnvDuration(&c.ReadTimeout, prefix+"READ_TIMEOUT")
	setEnvString(&c.Ops.BindAddr, prefix+"OPS_BIND_ADDR")
	setEnvString(&c.Ops.Prometheus.AccessToken, prefix+"OPS_PROMETHEUS_ACCESS_TOKEN")
}

func setEnvString(dest *string, name string) {
	value := os.Getenv(name)
	if value != "" {
		*dest = value
	}
}

func setEnvInt(dest *int, name string) {
	value, err := strconv.Atoi(os.Getenv(name))
	if err == nil {
		*dest = value
	}
}

func setEnvUint32(dest *uint32, name string) {
	value, err := strconv.ParseUint(os.Getenv(name), 10, 32)
	if err == nil {
		*dest = uint32(value)
	}
}

func setEnvDuration(dest *time.Duration, name string) {
	value, err := time.ParseDuration(os.Getenv(name))
	if err == nil {
		*dest = value
	}
}
