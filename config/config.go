package config

import (
	"os"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/metric"
	"gopkg.in/yaml.v3"

	"github.com/aqualab/aqualab-push-server/audit"
	"github.com/aqualab/aqualab-push-server/db"
	"github.com/aqualab/aqualab-push-server/redisprovider"
	"github.com/aqualab/aqualab-push-server/sender"
	"github.com/aqualab/aqualab-push-server/sender/provider/fcm"
)

const CName = "config"

func NewFromFile(path string) (c *Config, err error) {
	c = &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return
}

type Config struct {
	Mongo    db.Mongo             `yaml:"mongo"`
	Redis    redisprovider.Config `yaml:"redis"`
	Metric   metric.Config        `yaml:"metric"`
	FCM      fcm.Config           `yaml:"fcm"`
	Dispatch sender.Config        `yaml:"dispatch"`
	Audit    audit.Config         `yaml:"audit"`
}

func (c *Config) Init(a *app.App) (err error) {
	return nil
}

func (c *Config) Name() (name string) {
	return CName
}

func (c *Config) GetMongo() db.Mongo {
	return c.Mongo
}

func (c *Config) GetRedis() redisprovider.Config {
	return c.Redis
}

func (c *Config) GetMetric() metric.Config {
	return c.Metric
}

func (c *Config) GetFCM() fcm.Config {
	return c.FCM
}

func (c *Config) GetDispatch() sender.Config {
	return c.Dispatch
}

func (c *Config) GetAudit() audit.Config {
	return c.Audit
}
