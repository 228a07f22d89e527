package config

import (
	"io"

	"github.com/deadline-guardian/guardian/pkg/service/mail"
)

func NewAppForTest(configPath, appURL string, freeTierLimit int, mailFrom string) *App {
	return &App{
		configPath:    configPath,
		appURL:        appURL,
		freeTierLimit: freeTierLimit,
		mailFrom:      mailFrom,
	}
}

func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath}
}

func NewTransportForTest(kind string, smtp mail.SMTPConfig, sendGridAPIKey, slackBotToken string, out io.Writer) *Transport {
	return &Transport{
		kind:           kind,
		smtp:           smtp,
		sendGridAPIKey: sendGridAPIKey,
		slackBotToken:  slackBotToken,
		consoleOut:     out,
	}
}

func NewLockForTest(kind, filePath string) *Lock {
	return &Lock{kind: kind, filePath: filePath}
}

func NewAuthForTest(jwtSecret, noAuthUID string) *Auth {
	return &Auth{jwtSecret: jwtSecret, noAuthUID: noAuthUID}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}
