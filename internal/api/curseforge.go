package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const curseforgeBaseURL = "https://api.curseforge.com/v1"

// minecraftGameID is CurseForge's fixed numeric id for the Minecraft game.
const minecraftGameID = 432

// CurseForgeClient handles CurseForge API interactions. Net new: the
// teacher has no CurseForge client at all, only Modrinth.
type CurseForgeClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewCurseForgeClient creates a new CurseForge API client. apiKey is sent
// as the "x-api-key" header CurseForge requires on every request.
func NewCurseForgeClient(apiKey string) *CurseForgeClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	return &CurseForgeClient{
		httpClient: retryClient.StandardClient(),
		baseURL:    curseforgeBaseURL,
		apiKey:     apiKey,
	}
}

// WithBaseURL overrides the API base URL, letting tests point the
// client at an httptest server instead of the live CurseForge gateway.
func (c *CurseForgeClient) WithBaseURL(url string) *CurseForgeClient {
	c.baseURL = url
	return c
}

// CFMod represents a CurseForge mod project.
type CFMod struct {
	ID            int          `json:"id"`
	GameID        int          `json:"gameId"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Summary       string       `json:"summary"`
	DownloadCount float64      `json:"downloadCount"`
	Logo          *CFAsset     `json:"logo"`
	Links         CFModLinks   `json:"links"`
	LatestFiles   []CFFile     `json:"latestFiles"`
	Categories    []CFCategory `json:"categories"`
}

type CFAsset struct {
	ID           int    `json:"id"`
	ThumbnailURL string `json:"thumbnailUrl"`
	URL          string `json:"url"`
}

type CFModLinks struct {
	WebsiteURL string `json:"websiteUrl"`
}

type CFCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CFFile represents a single downloadable file on a CurseForge mod.
type CFFile struct {
	ID              int       `json:"id"`
	ModID           int       `json:"modId"`
	DisplayName     string    `json:"displayName"`
	FileName        string    `json:"fileName"`
	DownloadURL     string    `json:"downloadUrl"`
	FileLength      int64     `json:"fileLength"`
	GameVersions    []string  `json:"gameVersions"`
	FileFingerprint int64     `json:"fileFingerprint"`
	ReleaseType     int       `json:"releaseType"` // 1=release, 2=beta, 3=alpha
	Hashes          []CFHash  `json:"hashes"`
}

type CFHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"` // 1 = sha1, 2 = md5
}

type cfResponse[T any] struct {
	Data T `json:"data"`
}

// FingerprintMatch pairs a submitted fingerprint with the file CurseForge
// resolved it to.
type FingerprintMatch struct {
	ID    int    `json:"id"`
	File  CFFile `json:"file"`
}

type fingerprintMatchesResult struct {
	ExactMatches []FingerprintMatch `json:"exactMatches"`
}

func (c *CurseForgeClient) newRequest(ctx context.Context, method, reqURL string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	return req, nil
}

// GetMod fetches a mod by its numeric CurseForge id.
func (c *CurseForgeClient) GetMod(ctx context.Context, modID int) (*CFMod, error) {
	reqURL := fmt.Sprintf("%s/mods/%d", c.baseURL, modID)
	req, err := c.newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching mod: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result cfResponse[CFMod]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result.Data, nil
}

// GetModFile fetches a specific file of a mod.
func (c *CurseForgeClient) GetModFile(ctx context.Context, modID, fileID int) (*CFFile, error) {
	reqURL := fmt.Sprintf("%s/mods/%d/files/%d", c.baseURL, modID, fileID)
	req, err := c.newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching mod file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result cfResponse[CFFile]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result.Data, nil
}

// GetFingerprintMatches resolves Murmur2 fingerprints to mod files, the way
// the mod scan loop identifies unrecognized local jars.
func (c *CurseForgeClient) GetFingerprintMatches(ctx context.Context, fingerprints []int64) ([]FingerprintMatch, error) {
	reqURL := fmt.Sprintf("%s/fingerprints/%d", c.baseURL, minecraftGameID)
	req, err := c.newRequest(ctx, http.MethodPost, reqURL, map[string]any{"fingerprints": fingerprints})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matching fingerprints: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result cfResponse[fingerprintMatchesResult]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result.Data.ExactMatches, nil
}

// SearchMods searches for mods by name under the Minecraft game id.
func (c *CurseForgeClient) SearchMods(ctx context.Context, query string, gameVersion string, limit int) ([]CFMod, error) {
	params := url.Values{}
	params.Set("gameId", fmt.Sprintf("%d", minecraftGameID))
	if query != "" {
		params.Set("searchFilter", query)
	}
	if gameVersion != "" {
		params.Set("gameVersion", gameVersion)
	}
	if limit > 0 {
		params.Set("pageSize", fmt.Sprintf("%d", limit))
	}

	reqURL := fmt.Sprintf("%s/mods/search?%s", c.baseURL, params.Encode())
	req, err := c.newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching mods: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result cfResponse[[]CFMod]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result.Data, nil
}
