package config

import (
	"fmt"
	"os"
)

// Template returns a commented config file holding the default values.
func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o644)
}

const defaultTemplate = `# doipscope configuration

[log]
# trace | debug | info | warn | error | off
level = "info"
timestamp = true
no_color = false

[input]
# binary: back-to-back DoIP messages; hex: messages as hex, one or more per line;
# pcap: pcap or pcapng capture, DoIP on TCP/UDP port 13400
format = "binary"
max_payload_bytes = 8388608
# reject headers whose inverse version does not match
strict_header = true

[output]
# text | json | yaml
format = "text"
show_registry = false
metrics = false
`
