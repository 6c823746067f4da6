package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/epic-swf/stfmon/internal/common"
	"github.com/epic-swf/stfmon/internal/common/app"
	"github.com/epic-swf/stfmon/internal/stfclient"
	"github.com/epic-swf/stfmon/internal/stfclient/configuration"
)

const CustomConfigLocation = "config"

func init() {
	pflag.StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)",
	)
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.StfClientConfiguration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)
	common.LoadConfig(&config, "./config/stfclient", userSpecifiedConfigs)

	if err := stfclient.Run(app.CreateContextWithShutdown(), &config); err != nil {
		log.Fatalf("STF client failed: %v", err)
	}
}
