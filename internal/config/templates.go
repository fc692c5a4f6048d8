package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# stock-alerter configuration

[schedule]
# How often active alerts are evaluated.
interval = "5m"

[market]
# Daily bars fetched for indicator calculations.
history_days = 200

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
level = "info"
file = true
`

// createTemplateConfig writes a commented config template so a first
// run leaves something editable behind.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(configTemplate), 0600)
}
