// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for movierec.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Split   SplitConfig   `mapstructure:"split"`
	Model   ModelConfig   `mapstructure:"model"`
	Collect CollectConfig `mapstructure:"collect"`
}

// DataConfig is the configuration for building the ratings matrix.
type DataConfig struct {
	MinMoviePopularity int `mapstructure:"min_movie_popularity" validate:"gte=0"`
	MinUserActivity    int `mapstructure:"min_user_activity" validate:"gte=0"`
}

// SplitConfig is the configuration for splitting the ratings matrix.
type SplitConfig struct {
	TestPercent       int `mapstructure:"test_percent" validate:"gte=0,lte=100"`
	ValidationPercent int `mapstructure:"validation_percent" validate:"gte=0,lte=100"`
	// RandomState seeds the split. The split is seeded by the clock if unset.
	RandomState *int64 `mapstructure:"random_state"`
}

// ModelConfig is the configuration for the factorization.
type ModelConfig struct {
	SVDRank      int   `mapstructure:"svd_rank" validate:"gte=1"`
	NOversamples int   `mapstructure:"n_oversamples" validate:"gte=0"`
	NPowerIters  int   `mapstructure:"n_power_iters" validate:"gte=0"`
	RandomState  int64 `mapstructure:"random_state"`
	NJobs        int   `mapstructure:"n_jobs" validate:"gte=1"`
}

// CollectConfig is the configuration for collecting events from the message log.
type CollectConfig struct {
	URL            string        `mapstructure:"url" validate:"required"`
	Topic          string        `mapstructure:"topic" validate:"required"`
	QueueGroup     string        `mapstructure:"queue_group"`
	DurableName    string        `mapstructure:"durable_name"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	MaxReconnects  int           `mapstructure:"max_reconnects" validate:"gte=-1"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait" validate:"gte=0"`
	AckWaitTimeout time.Duration `mapstructure:"ack_wait_timeout" validate:"gt=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			MinMoviePopularity: 3000,
			MinUserActivity:    10,
		},
		Split: SplitConfig{
			TestPercent:       20,
			ValidationPercent: 10,
		},
		Model: ModelConfig{
			SVDRank:      50,
			NOversamples: 30,
			NPowerIters:  10,
			NJobs:        1,
		},
		Collect: CollectConfig{
			URL:            "nats://127.0.0.1:4222",
			Topic:          "movielog",
			QueueGroup:     "movierec",
			DurableName:    "movierec",
			IdleTimeout:    5 * time.Second,
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			AckWaitTimeout: 30 * time.Second,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [data]
	viper.SetDefault("data.min_movie_popularity", defaultConfig.Data.MinMoviePopularity)
	viper.SetDefault("data.min_user_activity", defaultConfig.Data.MinUserActivity)
	// [split]
	viper.SetDefault("split.test_percent", defaultConfig.Split.TestPercent)
	viper.SetDefault("split.validation_percent", defaultConfig.Split.ValidationPercent)
	// [model]
	viper.SetDefault("model.svd_rank", defaultConfig.Model.SVDRank)
	viper.SetDefault("model.n_oversamples", defaultConfig.Model.NOversamples)
	viper.SetDefault("model.n_power_iters", defaultConfig.Model.NPowerIters)
	viper.SetDefault("model.random_state", defaultConfig.Model.RandomState)
	viper.SetDefault("model.n_jobs", defaultConfig.Model.NJobs)
	// [collect]
	viper.SetDefault("collect.url", defaultConfig.Collect.URL)
	viper.SetDefault("collect.topic", defaultConfig.Collect.Topic)
	viper.SetDefault("collect.queue_group", defaultConfig.Collect.QueueGroup)
	viper.SetDefault("collect.durable_name", defaultConfig.Collect.DurableName)
	viper.SetDefault("collect.idle_timeout", defaultConfig.Collect.IdleTimeout)
	viper.SetDefault("collect.max_reconnects", defaultConfig.Collect.MaxReconnects)
	viper.SetDefault("collect.reconnect_wait", defaultConfig.Collect.ReconnectWait)
	viper.SetDefault("collect.ack_wait_timeout", defaultConfig.Collect.AckWaitTimeout)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from toml file. Defaults are used if path is empty.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()

	// bind environment bindings
	bindings := []configBinding{
		{"data.min_movie_popularity", "MOVIEREC_MIN_MOVIE_POPULARITY"},
		{"data.min_user_activity", "MOVIEREC_MIN_USER_ACTIVITY"},
		{"split.test_percent", "MOVIEREC_TEST_PERCENT"},
		{"split.validation_percent", "MOVIEREC_VALIDATION_PERCENT"},
		{"split.random_state", "MOVIEREC_SPLIT_RANDOM_STATE"},
		{"model.svd_rank", "MOVIEREC_SVD_RANK"},
		{"model.n_oversamples", "MOVIEREC_N_OVERSAMPLES"},
		{"model.n_power_iters", "MOVIEREC_N_POWER_ITERS"},
		{"model.random_state", "MOVIEREC_MODEL_RANDOM_STATE"},
		{"model.n_jobs", "MOVIEREC_N_JOBS"},
		{"collect.url", "MOVIEREC_COLLECT_URL"},
		{"collect.topic", "MOVIEREC_COLLECT_TOPIC"},
		{"collect.queue_group", "MOVIEREC_COLLECT_QUEUE_GROUP"},
		{"collect.durable_name", "MOVIEREC_COLLECT_DURABLE_NAME"},
		{"collect.idle_timeout", "MOVIEREC_COLLECT_IDLE_TIMEOUT"},
		{"collect.max_reconnects", "MOVIEREC_COLLECT_MAX_RECONNECTS"},
		{"collect.reconnect_wait", "MOVIEREC_COLLECT_RECONNECT_WAIT"},
		{"collect.ack_wait_timeout", "MOVIEREC_COLLECT_ACK_WAIT_TIMEOUT"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// load config file
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}

	// validate config file
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks every field and the sum of the split percentages.
func (config *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.Struct(config); err != nil {
		return errors.WithType(err, errors.NotValid)
	}
	if sum := config.Split.TestPercent + config.Split.ValidationPercent; sum > 100 {
		return errors.NotValidf("split.test_percent + split.validation_percent = %d", sum)
	}
	return nil
}
