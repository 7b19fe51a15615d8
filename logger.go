package main

import (
	"encoding/json"

	"github.com/astaxie/beego/logs"
)

// newLogger writes to the console and, when File is set, appends to a file.
func newLogger(c LogConfig) (*logs.BeeLogger, error) {
	l := logs.NewLogger()

	console, err := json.Marshal(map[string]interface{}{
		"level": c.Level,
		"color": c.Color,
	})
	if err != nil {
		return nil, err
	}
	if err := l.SetLogger(logs.AdapterConsole, string(console)); err != nil {
		return nil, err
	}

	if c.File != "" {
		file, err := json.Marshal(map[string]interface{}{
			"filename": c.File,
			"level":    c.Level,
			"daily":    false,
		})
		if err != nil {
			return nil, err
		}
		if err := l.SetLogger(logs.AdapterFile, string(file)); err != nil {
			return nil, err
		}
	}

	l.SetLevel(c.Level)
	return l, nil
}
