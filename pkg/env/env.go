package env

import "os"

type Env = string

const (
	DEV  Env = "DEV"
	PROD Env = "PROD"
)

func AppEnv() Env {
	if value := os.Getenv("ENV"); value != "" {
		return value
	}
	return DEV
}

func IsProduction() bool {
	return AppEnv() == PROD
}
