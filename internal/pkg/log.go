package pkg

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// SetupLogger 按配置设置全局 logrus
func SetupLogger(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)
	if format == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}
