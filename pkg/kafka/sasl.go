package kafka

import (
	"strings"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

var scramHashes = map[string]struct {
	mechanism sarama.SASLMechanism
	hash      scram.HashGeneratorFcn
}{
	"SCRAM-SHA-256": {sarama.SASLTypeSCRAMSHA256, scram.SHA256},
	"SCRAM-SHA-512": {sarama.SASLTypeSCRAMSHA512, scram.SHA512},
}

// applySASL enables SASL on sc. Unknown mechanisms fall back to PLAIN.
func applySASL(sc *sarama.Config, user, password, mechanism string) {
	sc.Net.SASL.Enable = true
	sc.Net.SASL.User = user
	sc.Net.SASL.Password = password
	sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext

	m, ok := scramHashes[strings.ToUpper(strings.TrimSpace(mechanism))]
	if !ok {
		return
	}
	sc.Net.SASL.Mechanism = m.mechanism
	sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
		return &scramClient{hash: m.hash}
	}
}

// scramClient adapts xdg-go/scram to sarama.SCRAMClient.
type scramClient struct {
	hash scram.HashGeneratorFcn
	conv *scram.ClientConversation
}

func (c *scramClient) Begin(user, password, authzID string) error {
	client, err := c.hash.NewClient(user, password, authzID)
	if err != nil {
		return err
	}
	c.conv = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) { return c.conv.Step(challenge) }

func (c *scramClient) Done() bool { return c.conv.Done() }
