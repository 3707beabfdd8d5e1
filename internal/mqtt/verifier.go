// Package mqtt 签发后的凭证冒烟检查：用每个凭证连一次 broker
package mqtt

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"concaria/internal/blueprint"
)

// Verifier MQTT 凭证验证器
type Verifier struct {
	broker string
	logger *zap.Logger
}

func NewVerifier(broker string, logger *zap.Logger) *Verifier {
	return &Verifier{broker: broker, logger: logger}
}

// VerifyCredentials 逐个凭证连接 broker；首个失败即返回
// 只做连接/断开，不发布任何消息
func (v *Verifier) VerifyCredentials(ctx context.Context, credentials []blueprint.MqttCredential) error {
	for _, credential := range credentials {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := v.verifyOne(credential); err != nil {
			return err
		}
		v.logger.Debug("MQTT credential verified",
			zap.String("entity_id", credential.EntityID),
			zap.String("entity_type", credential.EntityType),
		)
	}
	v.logger.Info("MQTT credentials verified", zap.Int("count", len(credentials)))
	return nil
}

func (v *Verifier) verifyOne(credential blueprint.MqttCredential) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(v.broker)
	opts.SetClientID("concaria-verify-" + uuid.NewString())
	opts.SetUsername(credential.EntityID)
	opts.SetPassword(credential.Secret)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("credential for %s %s rejected by broker: %w",
			credential.EntityType, credential.EntityID, token.Error())
	}
	client.Disconnect(250)
	return nil
}
