package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/horusctf/horus/internal/pkg/logs"
)

// SessionCookie contains name of backend session cookie.
const SessionCookie = "access_token"

// Client represents backend REST client.
//
// Session cookies are stored in client cookie jar and attached to every
// request. Failures are never retried.
type Client struct {
	endpoint string
	client   http.Client
	logger   *logs.Logger
	Headers  map[string]string
}

type ClientOption func(*Client)

// WithSessionCookie sets existing session.
func WithSessionCookie(value string) ClientOption {
	return func(c *Client) {
		u, err := url.Parse(c.endpoint)
		if err != nil {
			panic(err)
		}
		c.client.Jar.SetCookies(u, []*http.Cookie{{
			Name:  SessionCookie,
			Value: value,
			Path:  "/",
		}})
	}
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.client.Transport = transport
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

func WithLogger(logger *logs.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns new API client.
func NewClient(endpoint string, options ...ClientOption) *Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}
	c := Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client: http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		logger: logs.Discard(),
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

// Endpoint returns base URL of backend.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SessionCookie returns current value of session cookie.
func (c *Client) SessionCookie() string {
	u, err := url.Parse(c.endpoint + "/")
	if err != nil {
		return ""
	}
	for _, cookie := range c.client.Jar.Cookies(u) {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var respData User
	err := c.call(ctx, http.MethodGet, c.getURL("/auth/me"), nil, &respData)
	return respData, err
}

func (c *Client) Login(ctx context.Context, form LoginForm) error {
	return c.call(ctx, http.MethodPost, c.getURL("/auth/login"), form, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, c.getURL("/auth/logout"), nil, nil)
}

func (c *Client) UpdateMe(ctx context.Context, form UpdateProfileForm) (User, error) {
	var respData User
	err := c.call(ctx, http.MethodPut, c.getURL("/auth/me"), form, &respData)
	return respData, err
}

func (c *Client) Register(ctx context.Context, form RegisterUserForm) error {
	return c.call(ctx, http.MethodPost, c.getURL("/auth/register"), form, nil)
}

func (c *Client) ObserveUsers(ctx context.Context) (Users, error) {
	var respData Users
	err := c.call(ctx, http.MethodGet, c.getURL("/auth/users"), nil, &respData)
	return respData, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, form UpdateUserForm) error {
	return c.call(ctx, http.MethodPut, c.getURL("/auth/users/%s", id), form, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.getURL("/auth/users/%s", id), nil, nil)
}

func (c *Client) ObserveCompetitions(ctx context.Context) (Competitions, error) {
	var respData Competitions
	err := c.call(ctx, http.MethodGet, c.getURL("/competitions/"), nil, &respData)
	return respData, err
}

func (c *Client) ObserveCompetition(ctx context.Context, id string) (Competition, error) {
	var respData Competition
	err := c.call(ctx, http.MethodGet, c.getURL("/competitions/%s", id), nil, &respData)
	return respData, err
}

func (c *Client) CreateCompetition(
	ctx context.Context, form CreateCompetitionForm,
) (Competition, error) {
	var respData Competition
	err := c.call(ctx, http.MethodPost, c.getURL("/competitions/"), form, &respData)
	return respData, err
}

func (c *Client) UpdateCompetition(
	ctx context.Context, id string, form UpdateCompetitionForm,
) (Competition, error) {
	var respData Competition
	err := c.call(ctx, http.MethodPatch, c.getURL("/competitions/%s", id), form, &respData)
	return respData, err
}

func (c *Client) DeleteCompetition(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.getURL("/competitions/%s", id), nil, nil)
}

func (c *Client) JoinCompetition(ctx context.Context, form JoinCompetitionForm) error {
	return c.call(ctx, http.MethodPost, c.getURL("/competitions/join"), form, nil)
}

func (c *Client) ObserveCompetitionExercises(ctx context.Context, id string) (Exercises, error) {
	var respData Exercises
	err := c.call(ctx, http.MethodGet, c.getURL("/competitions/%s/exercises", id), nil, &respData)
	return respData, err
}

func (c *Client) ObserveExercises(ctx context.Context) (Exercises, error) {
	var respData Exercises
	err := c.call(ctx, http.MethodGet, c.getURL("/exercises/"), nil, &respData)
	return respData, err
}

func (c *Client) CreateExercise(ctx context.Context, form ExerciseForm) (Exercise, error) {
	var respData Exercise
	err := c.call(ctx, http.MethodPost, c.getURL("/exercises/"), form, &respData)
	return respData, err
}

func (c *Client) UpdateExercise(
	ctx context.Context, id string, form ExerciseForm,
) (Exercise, error) {
	var respData Exercise
	err := c.call(ctx, http.MethodPatch, c.getURL("/exercises/%s", id), form, &respData)
	return respData, err
}

func (c *Client) DeleteExercise(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.getURL("/exercises/%s", id), nil, nil)
}

func (c *Client) LinkExerciseTag(ctx context.Context, id, tagID string) error {
	return c.call(ctx, http.MethodPost, c.getURL("/exercises/%s/tags/%s", id, tagID), nil, nil)
}

func (c *Client) UnlinkExerciseTag(ctx context.Context, id, tagID string) error {
	return c.call(ctx, http.MethodDelete, c.getURL("/exercises/%s/tags/%s", id, tagID), nil, nil)
}

func (c *Client) DeployExercise(
	ctx context.Context, id string, form DeployForm,
) (DeployResult, error) {
	var respData DeployResult
	err := c.call(ctx, http.MethodPost, c.getURL("/exercises/%s/deploy", id), form, &respData)
	return respData, err
}

func (c *Client) ObserveExerciseCompetitions(ctx context.Context, id string) (Competitions, error) {
	var respData Competitions
	err := c.call(ctx, http.MethodGet, c.getURL("/exercises/%s/competitions", id), nil, &respData)
	return respData, err
}

func (c *Client) LinkExerciseCompetition(ctx context.Context, id, competitionID string) error {
	return c.call(
		ctx, http.MethodPost,
		c.getURL("/exercises/%s/link-competition/%s", id, competitionID), nil, nil,
	)
}

func (c *Client) UnlinkExerciseCompetition(ctx context.Context, id, competitionID string) error {
	return c.call(
		ctx, http.MethodDelete,
		c.getURL("/exercises/%s/competition/%s", id, competitionID), nil, nil,
	)
}

func (c *Client) SubmitFlag(ctx context.Context, form SubmitFlagForm) (SubmitResult, error) {
	var respData SubmitResult
	err := c.call(ctx, http.MethodPost, c.getURL("/exercises/submit"), form, &respData)
	return respData, err
}

func (c *Client) ObserveMySolves(ctx context.Context) (Solves, error) {
	var respData Solves
	err := c.call(ctx, http.MethodGet, c.getURL("/exercises/my-solves"), nil, &respData)
	return respData, err
}

func (c *Client) ObserveTags(ctx context.Context) (Tags, error) {
	var respData Tags
	err := c.call(ctx, http.MethodGet, c.getURL("/tags/"), nil, &respData)
	return respData, err
}

func (c *Client) CreateTag(ctx context.Context, form TagForm) (Tag, error) {
	var respData Tag
	err := c.call(ctx, http.MethodPost, c.getURL("/tags/"), form, &respData)
	return respData, err
}

func (c *Client) UpdateTag(ctx context.Context, id string, form TagForm) (Tag, error) {
	var respData Tag
	err := c.call(ctx, http.MethodPatch, c.getURL("/tags/%s", id), form, &respData)
	return respData, err
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.getURL("/tags/%s", id), nil, nil)
}

func (c *Client) ObserveContainers(ctx context.Context) (Containers, error) {
	var respData Containers
	err := c.call(ctx, http.MethodGet, c.getURL("/containers/"), nil, &respData)
	return respData, err
}

func (c *Client) SyncContainers(ctx context.Context) (SyncResult, error) {
	var respData SyncResult
	err := c.call(ctx, http.MethodPost, c.getURL("/containers/sync"), nil, &respData)
	return respData, err
}

func (c *Client) DeleteContainer(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.getURL("/containers/%s", id), nil, nil)
}

func (c *Client) ObserveScoreboard(ctx context.Context, competitionID string) (Scoreboard, error) {
	var respData Scoreboard
	err := c.call(ctx, http.MethodGet, c.getURL("/scoreboard/%s", competitionID), nil, &respData)
	return respData, err
}

func (c *Client) ObserveGlobalScoreboard(ctx context.Context) (Scoreboard, error) {
	var respData Scoreboard
	err := c.call(ctx, http.MethodGet, c.getURL("/scoreboard/global"), nil, &respData)
	return respData, err
}

func (c *Client) getURL(path string, args ...any) string {
	escaped := make([]any, len(args))
	for i, arg := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(arg))
	}
	return c.endpoint + fmt.Sprintf(path, escaped...)
}

func (c *Client) call(
	ctx context.Context, method, path string, form any, respData any,
) error {
	var body io.Reader
	if form != nil {
		data, err := json.Marshal(form)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.doRequest(req, respData)
}

func (c *Client) doRequest(req *http.Request, respData any) error {
	if len(req.Header.Get("Content-Type")) == 0 {
		req.Header.Add("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.Headers {
		req.Header.Add(key, value)
	}
	logger := c.logger.With(
		logs.Any("method", req.Method),
		logs.Any("path", req.URL.Path),
	)
	begin := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("Request failed", err)
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	logger.Debug(
		"Request completed",
		logs.Any("status", resp.StatusCode),
		logs.Any("duration", time.Since(begin)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := ErrorResponse{Code: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err == nil && len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &errResp); err != nil {
				errResp.Detail = ""
			}
		}
		errResp.Code = resp.StatusCode
		logger.Warn(
			"Request rejected",
			logs.Any("status", resp.StatusCode),
			logs.Any("detail", errResp.Detail),
		)
		return &errResp
	}
	if respData == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respData); err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}
	return nil
}
