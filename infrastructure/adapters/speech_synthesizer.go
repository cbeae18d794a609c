package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
)

const synthesisService = "speech-synthesis"

type SynthesisRequest struct {
	Text         string `json:"text"`
	VoiceCode    string `json:"voice_code"`
	ModelId      string `json:"model_id"`
	OutputFormat string `json:"output_format"`
	ScriptId     string `json:"script_id"`
	SceneId      string `json:"scene_id"`
	AudioId      string `json:"audio_id"`
}

type SynthesisResponse struct {
	S3Url       string `json:"s3_url"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type speechSynthesizer struct {
	ContentFetcher
	synthesisConfig *config.SynthesisConfig
	logger          outbound.LoggerPort
}

func NewSpeechSynthesizer(contentFetcher ContentFetcher, synthesisConfig *config.SynthesisConfig, logger outbound.LoggerPort) outbound.SpeechSynthesizerPort {
	return &speechSynthesizer{
		ContentFetcher:  contentFetcher,
		synthesisConfig: synthesisConfig,
		logger:          logger,
	}
}

func (s *speechSynthesizer) Synthesize(ctx context.Context, params outbound.SynthesizeSpeechRequest) (*outbound.SynthesizeSpeechResponse, error) {
	req, err := s.getRequest(ctx, params)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to construct the HTTP request for speech synthesis", map[string]interface{}{
			"story_id": params.StoryID,
			"scene_id": params.SceneID,
			"audio_id": params.AudioID,
		})
		return nil, err
	}

	payload, err := s.FetchContent(synthesisService, req)
	if err != nil {
		return nil, err
	}

	var res SynthesisResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, &domain.ExternalServiceError{Service: synthesisService, StatusCode: http.StatusOK, Body: "malformed response: " + err.Error()}
	}
	if res.S3Url == "" {
		return nil, &domain.ExternalServiceError{Service: synthesisService, StatusCode: http.StatusOK, Body: "response has no asset url"}
	}

	return &outbound.SynthesizeSpeechResponse{
		AudioURL:    res.S3Url,
		ContentType: res.ContentType,
		FileSize:    res.FileSize,
		ModelID:     s.synthesisConfig.ModelId,
		Format:      s.synthesisConfig.OutputFormat,
	}, nil
}

func (s *speechSynthesizer) getRequest(ctx context.Context, params outbound.SynthesizeSpeechRequest) (*http.Request, error) {
	reqBody := SynthesisRequest{
		Text:         params.Text,
		VoiceCode:    params.VoiceCode,
		ModelId:      s.synthesisConfig.ModelId,
		OutputFormat: s.synthesisConfig.OutputFormat,
		ScriptId:     params.StoryID,
		SceneId:      params.SceneID,
		AudioId:      params.AudioID,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.synthesisConfig.ApiUrl, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	reqHeaders := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"apiPwd":       s.synthesisConfig.Credential(),
	}
	for key, value := range reqHeaders {
		req.Header.Set(key, value)
	}

	return req, nil
}
