package fcm

type configSource interface {
	GetFCM() Config
}

// Config carries the service-account fields. Exactly one of
// privateKeyBase64 (preferred) or privateKey (raw PEM with escaped
// newlines) must be set.
type Config struct {
	ProjectId        string `yaml:"projectId"`
	ClientEmail      string `yaml:"clientEmail"`
	PrivateKeyId     string `yaml:"privateKeyId"`
	ClientId         string `yaml:"clientId"`
	PrivateKeyBase64 string `yaml:"privateKeyBase64"`
	PrivateKey       string `yaml:"privateKey"`
}
