package pulsarutils

import (
	"strings"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/pkg/errors"

	"github.com/epic-swf/stfmon/internal/common/config"
	"github.com/epic-swf/stfmon/internal/common/serviceerrors"
)

func NewPulsarClient(cfg *config.PulsarConfig) (pulsar.Client, error) {
	var authentication pulsar.Authentication

	// Sanity check that supplied authentication parameters make sense
	if cfg.AuthenticationEnabled {
		if strings.ToLower(cfg.AuthenticationType) != "jwt" {
			return nil, errors.WithStack(&serviceerrors.ErrInvalidArgument{
				Name:    "pulsar.AuthenticationType",
				Value:   cfg.AuthenticationType,
				Message: "Only JWT Authentication for Pulsar is supported right now.",
			})
		}
		if strings.TrimSpace(cfg.JwtTokenPath) == "" {
			return nil, errors.WithStack(&serviceerrors.ErrInvalidArgument{
				Name:    "pulsar.JwtTokenPath",
				Value:   cfg.JwtTokenPath,
				Message: "JWT authentication was configured for Pulsar but no JwtTokenPath was supplied",
			})
		}
		authentication = pulsar.NewAuthenticationTokenFromFile(cfg.JwtTokenPath)
	}

	return pulsar.NewClient(pulsar.ClientOptions{
		URL:                        cfg.URL,
		TLSTrustCertsFilePath:      cfg.TLSTrustCertsFilePath,
		TLSValidateHostname:        cfg.TLSValidateHostname,
		TLSAllowInsecureConnection: cfg.TLSAllowInsecureConnection,
		MaxConnectionsPerBroker:    cfg.MaxConnectionsPerBroker,
		Authentication:             authentication,
	})
}
