package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/voicetranslator/api/internal/client"
	"github.com/voicetranslator/api/internal/model"
)

// TranslateSynthesizeResult is the artifact of a completed translate +
// synthesize stage.
type TranslateSynthesizeResult struct {
	TranslatedText string
	ResultAudioRef string
}

// TranslateSynthesizer chains translation and speech synthesis and persists
// the rendered clip. Both remote calls are all-or-nothing for the caller: a
// failure in either aborts the stage, and no partial artifact survives — a
// translated text whose synthesis failed is discarded with it.
//
// None of the failures are retried here; they are terminal for the job.
type TranslateSynthesizer struct {
	translator client.Translator
	speech     client.SpeechSynthesizer
	storage    client.StorageClient
}

// NewTranslateSynthesizer creates the translate+synthesize stage worker.
func NewTranslateSynthesizer(translator client.Translator, speech client.SpeechSynthesizer, storage client.StorageClient) *TranslateSynthesizer {
	return &TranslateSynthesizer{
		translator: translator,
		speech:     speech,
		storage:    storage,
	}
}

// Run translates transcript into target, synthesizes speech from the
// translation and uploads the audio. onTranslated, if non-nil, is invoked
// between the two remote calls with the translated text; an error from it
// aborts the stage before synthesis starts.
func (w *TranslateSynthesizer) Run(ctx context.Context, jobID, transcript string, target model.Language, onTranslated func(translatedText string) error) (*TranslateSynthesizeResult, error) {
	if !model.IsSupportedLanguage(string(target)) {
		return nil, fmt.Errorf("%w: %q", client.ErrUnsupportedLanguage, target)
	}
	if transcript == "" {
		return nil, fmt.Errorf("%w: empty transcript", client.ErrTranslationFailed)
	}

	translated, err := w.translator.Translate(ctx, transcript, string(target))
	if err != nil {
		return nil, err
	}
	if translated == "" {
		return nil, fmt.Errorf("%w: empty translation", client.ErrTranslationFailed)
	}

	if onTranslated != nil {
		if err := onTranslated(translated); err != nil {
			return nil, err
		}
	}

	clip, err := w.speech.Synthesize(ctx, translated, string(target))
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("results/%s%s", jobID, audioExtension(clip.ContentType))
	ref, err := w.storage.Upload(ctx, key, bytes.NewReader(clip.Audio), clip.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrStorageWriteFailed, err)
	}

	return &TranslateSynthesizeResult{
		TranslatedText: translated,
		ResultAudioRef: ref,
	}, nil
}

func audioExtension(contentType string) string {
	switch contentType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".mp3"
	}
}
