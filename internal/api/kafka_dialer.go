package api

import (
	"crypto/tls"
	"crypto/x509"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaAuth учетные данные брокера (SASL/PLAIN + TLS, например Aiven)
type KafkaAuth struct {
	Username string
	Password string
	CACert   string
}

func (a KafkaAuth) mechanism() sasl.Mechanism {
	if a.Username == "" || a.Password == "" {
		return nil
	}
	return plain.Mechanism{Username: a.Username, Password: a.Password}
}

// tlsConfig нужен при SASL или явном CA сертификате, иначе nil
func (a KafkaAuth) tlsConfig() *tls.Config {
	if a.mechanism() == nil && a.CACert == "" {
		return nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if a.CACert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(a.CACert)) {
			cfg.RootCAs = pool
			log.Printf("🔒 Kafka: TLS с CA сертификатом включен")
		} else {
			log.Printf("⚠️ Kafka: не удалось распарсить CA сертификат, используем системные сертификаты")
		}
	} else {
		log.Printf("🔒 Kafka: TLS включен (системные сертификаты)")
	}
	return cfg
}

// CreateKafkaDialer создает dialer для чтения (kafka.Reader)
func CreateKafkaDialer(auth KafkaAuth) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if m := auth.mechanism(); m != nil {
		dialer.SASLMechanism = m
		log.Printf("🔐 Kafka: SASL/PLAIN аутентификация включена (username: %s)", auth.Username)
	}
	dialer.TLS = auth.tlsConfig()
	return dialer
}

// CreateKafkaTransport создает transport для записи (kafka.Writer)
func CreateKafkaTransport(auth KafkaAuth) *kafka.Transport {
	return &kafka.Transport{
		DialTimeout: 10 * time.Second,
		SASL:        auth.mechanism(),
		TLS:         auth.tlsConfig(),
	}
}

// ParseKafkaBrokers парсит строку с брокерами (может быть через запятую)
func ParseKafkaBrokers(brokers string) []string {
	if brokers == "" {
		return []string{}
	}
	brokerList := strings.Split(strings.ReplaceAll(brokers, " ", ""), ",")
	var result []string
	for _, broker := range brokerList {
		if broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
