package doorbell

import (
	"fmt"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/channels/pushover"
	"github.com/kart-io/doorbell/pkg/channels/redispub"
	"github.com/kart-io/doorbell/pkg/channels/simpleget"
	"github.com/kart-io/doorbell/pkg/channels/telegram"
	"github.com/kart-io/doorbell/pkg/channels/twilio"
	"github.com/kart-io/doorbell/pkg/channels/webhook"
	"github.com/kart-io/doorbell/pkg/channels/wsgateway"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/logger"
)

var builtinFactories = map[string]channel.Factory{
	config.ChannelTelegram:       telegram.Factory,
	config.ChannelSlack:          webhook.Factory,
	config.ChannelDiscord:        webhook.Factory,
	config.ChannelWebhook:        webhook.Factory,
	config.ChannelSimpleGet:      simpleget.Factory,
	config.ChannelTwilioSMS:      twilio.Factory,
	config.ChannelTwilioWhatsApp: twilio.Factory,
	config.ChannelPushover:       pushover.Factory,
	config.ChannelRedis:          redispub.Factory,
	config.ChannelWebsocket:      wsgateway.Factory,
}

// RegisterBuiltins adds the factory of every built-in channel to r.
func RegisterBuiltins(r *channel.Registry) error {
	for _, name := range config.ChannelOrder {
		factory, ok := builtinFactories[name]
		if !ok {
			return fmt.Errorf("no built-in factory for channel %s", name)
		}
		if err := r.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a registry holding every built-in channel.
func DefaultRegistry(log logger.Logger) *channel.Registry {
	r := channel.NewRegistry(log)
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}
