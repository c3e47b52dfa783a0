// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`

	// BaseURL is the public host Twilio reaches us on; the stream callback
	// URL in the TwiML document is derived from it.
	BaseURL string `mapstructure:"base_url" validate:"required"`

	AwsRegion      string `mapstructure:"aws_region" validate:"required"`
	BedrockModelId string `mapstructure:"bedrock_model_id" validate:"required"`
	SarvamApiKey   string `mapstructure:"sarvam_api_key" validate:"required"`

	TwilioAccountSid string `mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string `mapstructure:"twilio_auth_token"`

	// DebugLLMPrompt logs the full prompt sent to Bedrock for every turn.
	DebugLLMPrompt bool `mapstructure:"debug_llm_prompt"`

	// RecordingDir is where per-call raw captures and WAVs land.
	RecordingDir string `mapstructure:"recording_dir" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "agri-agents-voice-bridge")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 3000)
	v.SetDefault("LOG_LEVEL", "debug")

	v.SetDefault("BASE_URL", "localhost:3000")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("SARVAM_API_KEY", "")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("DEBUG_LLM_PROMPT", false)
	v.SetDefault("RECORDING_DIR", "recordings")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
