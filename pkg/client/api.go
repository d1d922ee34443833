package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
)

// APIError is an application-level error surfaced through the response
// envelope's non-success code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Client consumes the feedback REST API. Every response is the
// {code, message, data} envelope, code 200 means success and anything else
// carries a human-readable message.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	token string

	// OnAuthExpired fires when the server answers 401, both auth expiry
	// paths (HTTP and push-channel close) funnel into the same logout.
	OnAuthExpired func()
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    http.DefaultClient,
	}
}

// SetToken installs the Bearer token used on authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// send executes a prepared request and decodes the response envelope.
func (c *Client) send(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnAuthExpired != nil {
			c.OnAuthExpired()
		}
	}

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("http %d: %s", resp.StatusCode, raw)
	}
	if envelope.Code != consts.CodeSuccess {
		return &APIError{Code: envelope.Code, Message: envelope.Message}
	}

	if out != nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// --- auth ---

func (c *Client) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/user/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and returns a live session. The token is installed on
// the client for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password, role string) (*Session, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/user/login", &models.LoginRequest{
		Username: username,
		Password: password,
		Role:     role,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.token = resp.Token
	return &Session{
		UserID:      models.ID(resp.User.ID),
		Role:        resp.User.Role,
		DisplayName: resp.User.Username,
		Token:       resp.Token,
	}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/user/logout", nil, nil)
	c.token = ""
	return err
}

// Me resolves the account behind the installed token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/user/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Merchants(ctx context.Context) ([]models.User, error) {
	var merchants []models.User
	if err := c.do(ctx, http.MethodGet, "/user/merchants", nil, &merchants); err != nil {
		return nil, err
	}
	return merchants, nil
}

// --- feedback ---

func (c *Client) CreateFeedback(ctx context.Context, req *models.CreateFeedbackRequest) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := c.do(ctx, http.MethodPost, "/feedback", req, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (c *Client) FeedbackByCreator(ctx context.Context, creatorID models.ID, creatorType uint8) ([]models.Feedback, error) {
	path := fmt.Sprintf("/feedback/creator?creator_id=%s&creator_type=%d", creatorID, creatorType)
	var feedbacks []models.Feedback
	if err := c.do(ctx, http.MethodGet, path, nil, &feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func (c *Client) FeedbackByTarget(ctx context.Context, targetID models.ID, targetType uint8) ([]models.Feedback, error) {
	path := fmt.Sprintf("/feedback/target?target_id=%s&target_type=%d", targetID, targetType)
	var feedbacks []models.Feedback
	if err := c.do(ctx, http.MethodGet, path, nil, &feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func (c *Client) AllFeedback(ctx context.Context) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	if err := c.do(ctx, http.MethodGet, "/feedback", nil, &feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func (c *Client) UpdateFeedbackStatus(ctx context.Context, id models.ID, status uint8) error {
	return c.do(ctx, http.MethodPut, "/feedback/"+id.String()+"/status",
		&models.UpdateStatusRequest{Status: status}, nil)
}

func (c *Client) DeleteFeedback(ctx context.Context, id models.ID) error {
	return c.do(ctx, http.MethodDelete, "/feedback/"+id.String(), nil, nil)
}

// --- messages ---

func (c *Client) CreateMessage(ctx context.Context, req *models.CreateMessageRequest) (*models.FeedbackMessage, error) {
	var msg models.FeedbackMessage
	if err := c.do(ctx, http.MethodPost, "/message", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) MessagesByFeedback(ctx context.Context, feedbackID models.ID) ([]models.FeedbackMessage, error) {
	var messages []models.FeedbackMessage
	if err := c.do(ctx, http.MethodGet, "/message/feedback/"+feedbackID.String(), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) MarkMessageRead(ctx context.Context, messageID models.ID) error {
	return c.do(ctx, http.MethodPut, "/message/"+messageID.String()+"/read", nil, nil)
}

// --- uploads ---

// UploadResult describes a stored image.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadImage sends an image file and returns where it was stored. The
// returned URL is what an image message carries as content.
func (c *Client) UploadImage(ctx context.Context, filename string, file io.Reader) (*UploadResult, error) {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload/image", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result UploadResult
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
