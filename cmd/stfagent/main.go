package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/epic-swf/stfmon/internal/common"
	"github.com/epic-swf/stfmon/internal/common/app"
	"github.com/epic-swf/stfmon/internal/stfagent"
	"github.com/epic-swf/stfmon/internal/stfagent/configuration"
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

	var config configuration.StfAgentConfiguration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)
	common.LoadConfig(&config, "./config/stfagent", userSpecifiedConfigs)

	if err := stfagent.Run(app.CreateContextWithShutdown(), &config); err != nil {
		log.Fatalf("STF agent failed: %v", err)
	}
}
