package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var audioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
	".ogg": true,
}

var trainingKinds = map[string]bool{
	"image": true,
	"video": true,
}

// UploadPhoto sends a local photo to POST /api/upload-photo and returns the
// stable server-side reference. A 2xx response with face_detected=false is a
// precondition failure, not a transport error.
func (c *HTTPClient) UploadPhoto(ctx context.Context, path string) (*PhotoUpload, error) {
	if err := checkAsset(path, photoExtensions); err != nil {
		return nil, err
	}

	var result PhotoUpload
	if err := c.postFile(ctx, "/api/upload-photo", "file", path, nil, &result); err != nil {
		return nil, asUploadError(err)
	}

	if !result.FaceDetected {
		c.logger.Warn("photo rejected: no face detected", "path", path)
		return nil, &UploadError{Precondition: true, Message: "no face detected in photo"}
	}

	c.logger.Info("photo uploaded", "path", path, "filepath", result.Filepath)
	return &result, nil
}

// UploadVoice sends an audio sample to POST /api/upload-voice.
func (c *HTTPClient) UploadVoice(ctx context.Context, path string) (*VoiceUpload, error) {
	if err := checkAsset(path, audioExtensions); err != nil {
		return nil, err
	}

	var result VoiceUpload
	if err := c.postFile(ctx, "/api/upload-voice", "voice", path, nil, &result); err != nil {
		return nil, asUploadError(err)
	}

	if !result.Success {
		return nil, &UploadError{Precondition: true, Message: orDefault(result.ErrorMsg, "voice upload rejected")}
	}

	c.logger.Info("voice uploaded", "voice_id", result.VoiceID, "filename", result.Filename)
	return &result, nil
}

// UploadTraining sends a batch of training assets to POST /api/upload-training
// as files[] parts with matching types[] fields.
func (c *HTTPClient) UploadTraining(ctx context.Context, paths, kinds []string) (*TrainingUpload, error) {
	if len(paths) == 0 {
		return nil, &UploadError{Precondition: true, Message: "no training files provided"}
	}
	if len(paths) != len(kinds) {
		return nil, &UploadError{Precondition: true, Message: "file kinds don't match file count"}
	}
	for i, kind := range kinds {
		if !trainingKinds[kind] {
			return nil, &UploadError{Precondition: true, Message: fmt.Sprintf("unsupported training kind %q", kind)}
		}
		if err := checkAsset(paths[i], nil); err != nil {
			return nil, err
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i, path := range paths {
		if err := writeFilePart(writer, "files[]", path); err != nil {
			return nil, err
		}
		if err := writer.WriteField("types[]", kinds[i]); err != nil {
			return nil, fmt.Errorf("write types field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	var result TrainingUpload
	if err := c.postMultipart(ctx, "/api/upload-training", writer.FormDataContentType(), body, &result); err != nil {
		return nil, asUploadError(err)
	}

	if !result.Success {
		return nil, &UploadError{Precondition: true, Message: orDefault(result.ErrorMsg, "training upload rejected")}
	}

	c.logger.Info("training assets uploaded", "model_id", result.ModelID, "files_count", result.FilesCount)
	return &result, nil
}

// CloneVoice requests a reusable cloned voice from an uploaded sample.
func (c *HTTPClient) CloneVoice(ctx context.Context, samplePath, name, description string) (*CloneResult, error) {
	req := map[string]string{
		"voice_sample_path": samplePath,
		"voice_name":        name,
		"description":       description,
	}

	var result CloneResult
	if err := c.postJSON(ctx, "/api/clone-voice", req, &result); err != nil {
		return nil, asUploadError(err)
	}

	if !result.Success {
		return nil, &UploadError{Precondition: true, Message: orDefault(result.ErrorMsg, "voice cloning rejected")}
	}

	c.logger.Info("voice cloned", "voice_id", result.VoiceID, "name", result.VoiceName)
	return &result, nil
}

// postFile uploads a single file as a multipart form with optional extra
// string fields.
func (c *HTTPClient) postFile(ctx context.Context, path, field, filePath string, fields map[string]string, out interface{}) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writeFilePart(writer, field, filePath); err != nil {
		return err
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	return c.postMultipart(ctx, path, writer.FormDataContentType(), body, out)
}

func (c *HTTPClient) postMultipart(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func writeFilePart(writer *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &UploadError{Precondition: true, Message: fmt.Sprintf("cannot open %s", path)}
	}
	defer f.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy file contents: %w", err)
	}
	return nil
}

// checkAsset rejects empty files and, when extensions is non-nil, files of an
// unaccepted media kind. Both checks run before any network call.
func checkAsset(path string, extensions map[string]bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return &UploadError{Precondition: true, Message: fmt.Sprintf("asset not found: %s", path)}
	}
	if info.Size() == 0 {
		return &UploadError{Precondition: true, Message: fmt.Sprintf("asset is empty: %s", path)}
	}
	if extensions != nil {
		ext := strings.ToLower(filepath.Ext(path))
		if !extensions[ext] {
			return &UploadError{Precondition: true, Message: fmt.Sprintf("unsupported media kind %q", ext)}
		}
	}
	return nil
}

// asUploadError translates transport errors into the UploadError taxonomy.
func asUploadError(err error) error {
	var up *UploadError
	if errors.As(err, &up) {
		return err
	}
	var he *httpError
	if errors.As(err, &he) {
		return &UploadError{StatusCode: he.StatusCode, Message: remoteMessage(he.Body)}
	}
	return &UploadError{Message: err.Error()}
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
