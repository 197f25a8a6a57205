package threadrun

import (
	"context"
	"net/http"
	"net/url"
)

// FileService accesses files inside an environment workspace.
type FileService struct {
	client *Client
}

type fileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *FileService) List(ctx context.Context, environmentID string) ([]FileInfo, error) {
	var files []FileInfo
	err := s.client.send(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/environments/" + environmentID + "/files",
	}, &files)
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *FileService) Read(ctx context.Context, environmentID, path string) (string, error) {
	var body fileContent
	err := s.client.send(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/environments/" + environmentID + "/files/content",
		query:  url.Values{"path": []string{path}},
	}, &body)
	if err != nil {
		return "", err
	}
	return body.Content, nil
}

func (s *FileService) Write(ctx context.Context, environmentID, path, content string) error {
	return s.client.send(ctx, apiRequest{
		method: http.MethodPut,
		path:   "/environments/" + environmentID + "/files/content",
		body:   fileContent{Path: path, Content: content},
	}, nil)
}

func (s *FileService) Delete(ctx context.Context, environmentID, path string) error {
	return s.client.send(ctx, apiRequest{
		method: http.MethodDelete,
		path:   "/environments/" + environmentID + "/files",
		query:  url.Values{"path": []string{path}},
	}, nil)
}
