// Copyright 2026 cpmsync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cpm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cpmtools/cpmsync/pkg/config"
)

const userAgent = "cpmsync/1.0"

// Known CPM endpoints. The tree and content endpoints sit behind the admin
// session; see authMethodFor.
const (
	endpointTree        = "/ws/cpm/tree"
	endpointBuiltInText = "/ws/cpm/builtintext"
	endpointPublish     = "/ws/cpm/customPageContent"
	endpointCreateAsset = "/ws/cpm/createAsset"
	endpointDeleteFile  = "/ws/cpm/deleteFile"
	endpointDeleteDir   = "/ws/cpm/deleteFolder"
	endpointVersionText = "/admin/customization/versionContents.html"
	endpointMappings    = "/ws/schema/query/com.cpm.plugin.file.mappings"
	endpointSchoolInfo  = "/ws/v1/school"
)

// 🌐 Client talks to the vendor's Customizable Page Management HTTP API.
type Client struct {
	baseURL string
	server  config.ServerArgs
	http    *http.Client
	msgs    *MessageSet
	auth    authState
}

// 🏭 New creates a client from config. The server URL must be set.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Server.URL == "" {
		return nil, errors.Errorf("server URL missing, set server.url: %w", ErrNotConfigured)
	}

	msgs := DefaultMessageSet()
	if cfg.Messages != nil {
		msgs.Merge(&MessageSet{
			PublishSuccess: cfg.Messages.PublishSuccess,
			CreateSuccess:  cfg.Messages.CreateSuccess,
			StaleID:        cfg.Messages.StaleID,
		})
	}

	transport := &http.Transport{}
	if cfg.Server.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.Server.URL, "/"),
		server:  cfg.Server,
		msgs:    msgs,
		http: &http.Client{
			Transport: transport,
			// Login responses are redirects whose cookies we need to see.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Messages returns the active returnMessage vocabulary.
func (c *Client) Messages() *MessageSet {
	return c.msgs
}

// 📄 TreePage is a file entry in a tree listing
type TreePage struct {
	Text   string `json:"text"`
	Custom bool   `json:"custom"`
}

// 📁 TreeFolder is a folder entry in a tree listing, possibly carrying its
// own children when the requested depth reaches them
type TreeFolder struct {
	Text       string       `json:"text"`
	Custom     bool         `json:"custom"`
	SubFolders []TreeFolder `json:"subFolders"`
	Pages      []TreePage   `json:"pages"`
}

// 📃 PageContent is the builtintext response for a single remote path. Both
// text fields may carry the vendor's "is not available" sentinel instead of
// real content; callers must filter it (pkg/resolve does).
type PageContent struct {
	ActiveCustomText       *string `json:"activeCustomText"`
	BuiltInText            string  `json:"builtInText"`
	ActiveCustomContentID  *int64  `json:"activeCustomContentId"`
	VersionAssetContentIDs []int64 `json:"versionAssetContentIds"`
	ReturnMessage          string  `json:"returnMessage"`
}

// 📤 PublishRequest carries one customization upload
type PublishRequest struct {
	ContentID  int64  // 0 asks the server to create a new customization
	Content    string
	RemotePath string
	KeyPath    string
}

// 📥 PublishResult reports the server's answer to an upload
type PublishResult struct {
	Message   string
	ContentID int64 // server-issued id when the response carries one
}

// 🔌 PluginMappingRow is one row of the bulk plugin-attribution query
type PluginMappingRow struct {
	CPMPath    string `json:"cpmpath"`
	Filename   string `json:"filename"`
	PluginName string `json:"pluginname"`
	PluginID   string `json:"pluginid"`
	Enabled    bool   `json:"enabled"`
}

// doJSON performs an authenticated request and decodes the JSON answer into
// out. Network failures and non-200 statuses map to ErrRemoteUnavailable.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out interface{}) error {
	if err := c.ensureAuthenticated(ctx, endpoint); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL+"/admin/customization/home.html")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.setAuthHeaders(req, endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("%s %s: %v: %w", method, endpoint, err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s %s: HTTP %d: %w", method, endpoint, resp.StatusCode, ErrRemoteUnavailable)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// 🌳 GetFolderTree lists one or more levels of the remote content tree.
func (c *Client) GetFolderTree(ctx context.Context, path string, maxDepth int) (*TreeFolder, error) {
	q := url.Values{
		"path":     {path},
		"maxDepth": {strconv.Itoa(maxDepth)},
	}

	var result struct {
		Folder *TreeFolder `json:"folder"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpointTree+"?"+q.Encode(), nil, "", &result); err != nil {
		return nil, errors.Errorf("getting folder tree for %s: %w", path, err)
	}
	if result.Folder == nil {
		return nil, errors.Errorf("tree response for %s had no folder: %w", path, ErrApplication)
	}
	return result.Folder, nil
}

// 📖 GetPageContent fetches the active custom and built-in text for a remote
// path. With loadFolderInfo the response also carries the customContentId
// and version list.
func (c *Client) GetPageContent(ctx context.Context, path string, loadFolderInfo bool) (*PageContent, error) {
	q := url.Values{
		"path":           {path},
		"LoadFolderInfo": {strconv.FormatBool(loadFolderInfo)},
	}

	var content PageContent
	if err := c.doJSON(ctx, http.MethodGet, endpointBuiltInText+"?"+q.Encode(), nil, "", &content); err != nil {
		return nil, errors.Errorf("getting page content for %s: %w", path, err)
	}
	return &content, nil
}

// 🕰️ GetVersionContent fetches the text of a specific historical version by
// its opaque asset-content id. The endpoint answers raw text, not JSON.
func (c *Client) GetVersionContent(ctx context.Context, versionID int64) (string, error) {
	endpoint := endpointVersionText + "?id=" + strconv.FormatInt(versionID, 10)
	if err := c.ensureAuthenticated(ctx, endpoint); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return "", errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	c.setAuthHeaders(req, endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Errorf("fetching version %d: %v: %w", versionID, err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Errorf("reading version content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("fetching version %d: HTTP %d: %w", versionID, resp.StatusCode, ErrRemoteUnavailable)
	}
	return string(data), nil
}

// 📤 PublishPageContent uploads one customization as multipart form data.
// HTTP 200 does not mean success; the returnMessage decides. Save/system
// error phrases surface as ErrStaleIdentifier so the coordinator can refresh
// its cached id and retry once.
func (c *Client) PublishPageContent(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	var body strings.Builder
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"customContentId":   strconv.FormatInt(req.ContentID, 10),
		"customContent":     req.Content,
		"customContentPath": req.RemotePath,
		"keyPath":           req.KeyPath,
		"keyValueMap":       "null",
		"publish":           "true",
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, errors.Errorf("writing form field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Errorf("closing form writer: %w", err)
	}

	var resp struct {
		ReturnMessage         string `json:"returnMessage"`
		ActiveCustomContentID *int64 `json:"activeCustomContentId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, endpointPublish, strings.NewReader(body.String()), w.FormDataContentType(), &resp); err != nil {
		return nil, errors.Errorf("publishing %s: %w", req.RemotePath, err)
	}

	result := &PublishResult{Message: resp.ReturnMessage}
	if resp.ActiveCustomContentID != nil {
		result.ContentID = *resp.ActiveCustomContentID
	}

	switch c.msgs.Classify(resp.ReturnMessage) {
	case MessagePublishSuccess, MessageCreateSuccess:
		return result, nil
	case MessageStaleID:
		return result, errors.Errorf("publishing %s (id %d): %s: %w", req.RemotePath, req.ContentID, resp.ReturnMessage, ErrStaleIdentifier)
	default:
		// Unrecognized messages are failures, but flag them: the vocabulary
		// is inferred, not documented.
		zerolog.Ctx(ctx).Warn().
			Str("path", req.RemotePath).
			Str("return_message", resp.ReturnMessage).
			Msg("unrecognized returnMessage from publish endpoint")
		return result, errors.Errorf("publishing %s: %s: %w", req.RemotePath, resp.ReturnMessage, ErrApplication)
	}
}

// 🆕 CreateAsset asks the server to create a new file or folder asset.
func (c *Client) CreateAsset(ctx context.Context, parentPath, name, assetType, content string) (*PublishResult, error) {
	form := url.Values{
		"newAssetPath":        {parentPath},
		"newAssetName":        {name},
		"newAssetType":        {assetType},
		"initialAssetContent": {content},
	}

	var resp struct {
		ReturnMessage         string `json:"returnMessage"`
		ActiveCustomContentID *int64 `json:"activeCustomContentId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, endpointCreateAsset, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &resp); err != nil {
		return nil, errors.Errorf("creating asset %s/%s: %w", parentPath, name, err)
	}

	result := &PublishResult{Message: resp.ReturnMessage}
	if resp.ActiveCustomContentID != nil {
		result.ContentID = *resp.ActiveCustomContentID
	}

	if c.msgs.Classify(resp.ReturnMessage) != MessageCreateSuccess {
		return result, errors.Errorf("creating asset %s/%s: %s: %w", parentPath, name, resp.ReturnMessage, ErrApplication)
	}
	return result, nil
}

// 🗑️ DeleteFile removes a custom file from the server.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	form := url.Values{"filePath": {path}}
	if err := c.doJSON(ctx, http.MethodPost, endpointDeleteFile, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil); err != nil {
		return errors.Errorf("deleting file %s: %w", path, err)
	}
	return nil
}

// 🗑️ DeleteFolder removes a custom folder from the server.
func (c *Client) DeleteFolder(ctx context.Context, path string) error {
	form := url.Values{"folderPath": {path}}
	if err := c.doJSON(ctx, http.MethodPost, endpointDeleteDir, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil); err != nil {
		return errors.Errorf("deleting folder %s: %w", path, err)
	}
	return nil
}

// 🔌 PluginMappings runs the bulk PowerQuery that attributes customizations
// to installed plugins.
func (c *Client) PluginMappings(ctx context.Context) ([]PluginMappingRow, error) {
	var result struct {
		Record []PluginMappingRow `json:"record"`
	}
	if err := c.doJSON(ctx, http.MethodPost, endpointMappings, strings.NewReader("{}"), "application/json", &result); err != nil {
		return nil, errors.Errorf("querying plugin mappings: %w", err)
	}
	return result.Record, nil
}

// 🩺 ConnectionReport summarizes a connection self-test
type ConnectionReport struct {
	BasicAPI bool
	CPMTree  bool
	BasicErr string
	CPMErr   string
}

/// 🩺 TestConnection exercises both auth paths: the public web service
// (OAuth in hybrid mode) and the CPM tree (session in hybrid mode).
func (c *Client) TestConnection(ctx context.Context) *ConnectionReport {
	report := &ConnectionReport{}

	if err := c.doJSON(ctx, http.MethodGet, endpointSchoolInfo, nil, "", nil); err != nil {
		report.BasicErr = err.Error()
	} else {
		report.BasicAPI = true
	}

	if _, err := c.GetFolderTree(ctx, "/", 1); err != nil {
		report.CPMErr = err.Error()
	} else {
		report.CPMTree = true
	}

	return report
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string {
	return fmt.Sprintf("cpm client for %s", c.baseURL)
}
