package main

import "time"

type Config struct {
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath             string        `env:"BLUGE_FILEPATH,required=true"`
	BlobRoot                  string        `env:"BLOB_ROOT,required=true"`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,required=true"`
	HealthInterval            time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	GeocoderURL               string        `env:"GEOCODER_URL,default=https://nominatim.openstreetmap.org"`
	GeocoderUserAgent         string        `env:"GEOCODER_USER_AGENT,default=mingle"`
	GeocoderTimeout           time.Duration `env:"GEOCODER_TIMEOUT,default=10s"`
	SeedSampleData            bool          `env:"SEED_SAMPLE_DATA,default=false"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
}
