package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Client talks to the feeds API. Token is sent as a bearer token once set.
type Client struct {
	http.Client
	Addr  string
	Token string
}

// Article is the client side view of an article.
type Article struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Content      string   `json:"content"`
	Author       string   `json:"author"`
	AuthorName   string   `json:"authorName"`
	Images       []string `json:"images"`
	Tags         []string `json:"tags"`
	IsLiked      bool     `json:"isLiked"`
	IsDisliked   bool     `json:"isDisliked"`
	IsBlocked    bool     `json:"isBlocked"`
	LikeCount    int      `json:"likeCount"`
	DislikeCount int      `json:"dislikeCount"`
	BlockCount   int      `json:"blockCount"`
}

// Signup is the account to register.
type Signup struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email"`
	DOB         string   `json:"dob,omitempty"`
	Password    string   `json:"password"`
	Preferences []string `json:"preferences"`
}

// APIError is a non 2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Message
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type token struct {
	Token string `json:"token"`
}

func (c *Client) Ping() (string, error) {
	req, err := http.NewRequest("GET", c.Addr+"/ping", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), err
}

// Signup registers the account and keeps its token.
func (c *Client) Signup(s Signup) error {
	var t token
	if err := c.call(http.MethodPost, "/api/auth/signup", s, &t); err != nil {
		return err
	}
	c.Token = t.Token

	return nil
}

// Login authenticates with an email or phone number and keeps the token.
func (c *Client) Login(identifier, password string) error {
	var t token
	if err := c.call(http.MethodPost, "/api/auth/login",
		map[string]string{"identifier": identifier, "password": password}, &t,
	); err != nil {
		return err
	}
	c.Token = t.Token

	return nil
}

// Feed returns the articles of the followed categories.
func (c *Client) Feed() ([]Article, error) {
	list := []Article{}
	err := c.call(http.MethodGet, "/api/articles", nil, &list)

	return list, err
}

func (c *Client) Article(id string) (Article, error) {
	var a Article
	err := c.call(http.MethodGet, "/api/articles/"+id, nil, &a)

	return a, err
}

// Interact likes, dislikes or blocks an article.
func (c *Client) Interact(id, action string) (Article, error) {
	var a Article
	err := c.call(http.MethodPost, "/api/articles/"+id+"/interact", map[string]string{"action": action}, &a)

	return a, err
}

func (c *Client) call(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.Addr+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	return errors.Wrapf(json.Unmarshal(env.Data, out), "decoding %s %s data", method, path)
}
