// Package texts holds the user-facing canned strings of the relay in a
// golang.org/x/text message catalog. The original deployment speaks Russian;
// English is the source language of the keys, so unknown locales degrade to
// readable text instead of missing entries.
package texts

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catalog keys. The English source string doubles as the key, which is the
// x/text convention.
const (
	// Waiting is shown to a regular user right after a submission.
	Waiting = "A response to your request is being generated. This usually takes 2 to 5 minutes."
	// WaitingFiles is the variant acknowledging attached files.
	WaitingFiles = "A response to your request is being generated. This usually takes 2 to 5 minutes. Files sent: %d"
	// Welcome is the first-run greeting synthesized into an empty history.
	Welcome = "Hi! I'm NeuroAI - the best neural network. Ask me any question and I'll try to answer it."
	// SendFailed is rendered locally when a send could not reach the server.
	SendFailed = "Failed to send the message. Please try again."
	// ReplySent confirms an admin reply was accepted.
	ReplySent = "Your reply has been sent."
)

var supported = []language.Tag{
	language.Russian, // default: the original audience
	language.English,
}

var matcher = language.NewMatcher(supported)

func init() {
	for key, ru := range map[string]string{
		Waiting:      "Генерируется ответ на ваш запрос. Это обычно занимает от 2 до 5 минут.",
		WaitingFiles: "Генерируется ответ на ваш запрос. Это обычно занимает от 2 до 5 минут. Файлов отправлено: %d",
		Welcome:      "Привет! Я NeuroAI - лучшая нейросеть. Задайте мне любой вопрос, и я постараюсь ответить на него.",
		SendFailed:   "Ошибка при отправке сообщения. Пожалуйста, попробуйте еще раз.",
		ReplySent:    "Ваш ответ отправлен.",
	} {
		if err := message.SetString(language.Russian, key, ru); err != nil {
			panic(err)
		}
		if err := message.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
}

// Printer selects a printer from an Accept-Language header value, falling
// back to Russian when the header is absent or unparseable.
func Printer(acceptLanguage string) *message.Printer {
	if acceptLanguage == "" {
		return message.NewPrinter(supported[0])
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return message.NewPrinter(supported[0])
	}
	tag, _, _ := matcher.Match(tags...)
	return message.NewPrinter(tag)
}
