package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// HTTPClient implements Client against the JSON-over-HTTPS contract.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type saltRequest struct {
	Username string `json:"username"`
}

type saltResponse struct {
	PassSalt1 []byte `json:"pass_salt_1"`
	PassSalt2 []byte `json:"pass_salt_2"`
}

func (c *HTTPClient) GetSalts(ctx context.Context, username string) ([]byte, []byte, error) {
	var resp saltResponse
	if err := c.post(ctx, "/salt", saltRequest{Username: username}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.PassSalt1, resp.PassSalt2, nil
}

type registerRequest struct {
	Username        string `json:"username"`
	Q1              string `json:"q1"`
	Q2              string `json:"q2"`
	Password        []byte `json:"password"`
	PassSalt1       []byte `json:"pass_salt_1"`
	PassSalt2       []byte `json:"pass_salt_2"`
	Recovery1       []byte `json:"recovery_1"`
	Recovery2       []byte `json:"recovery_2"`
	DataSalt11      []byte `json:"data_salt_11"`
	DataSalt12      []byte `json:"data_salt_12"`
	DataSalt21      []byte `json:"data_salt_21"`
	DataSalt22      []byte `json:"data_salt_22"`
	RecoveryKey     []byte `json:"recovery_key"`
	EncryptedMaster []byte `json:"encrypted_master"`
}

type timeResponse struct {
	Time int64 `json:"time"`
}

func (c *HTTPClient) Register(ctx context.Context, username, q1, q2 string, reg *vaultstore.RegistrationData) (int64, error) {
	req := registerRequest{
		Username:        username,
		Q1:              q1,
		Q2:              q2,
		Password:        reg.ServerPassword,
		PassSalt1:       reg.PassSalt1,
		PassSalt2:       reg.PassSalt2,
		Recovery1:       reg.Verifier1,
		Recovery2:       reg.Verifier2,
		DataSalt11:      reg.Salts.Salt11,
		DataSalt12:      reg.Salts.Salt12,
		DataSalt21:      reg.Salts.Salt21,
		DataSalt22:      reg.Salts.Salt22,
		RecoveryKey:     reg.RecoveryKey,
		EncryptedMaster: reg.Header,
	}
	var resp timeResponse
	if err := c.post(ctx, "/register", req, &resp); err != nil {
		return 0, err
	}
	return resp.Time, nil
}

type recoveryQuestionsResponse struct {
	Q1         string `json:"q1"`
	Q2         string `json:"q2"`
	DataSalt11 []byte `json:"data_salt_11"`
	DataSalt12 []byte `json:"data_salt_12"`
	DataSalt21 []byte `json:"data_salt_21"`
	DataSalt22 []byte `json:"data_salt_22"`
}

func (c *HTTPClient) RecoveryQuestions(ctx context.Context, username string) (*RecoveryQuestions, error) {
	var resp recoveryQuestionsResponse
	if err := c.post(ctx, "/recovery_questions", saltRequest{Username: username}, &resp); err != nil {
		return nil, err
	}
	return &RecoveryQuestions{
		Q1: resp.Q1,
		Q2: resp.Q2,
		Salts: vaultstore.RecoverySalts{
			Salt11: resp.DataSalt11,
			Salt12: resp.DataSalt12,
			Salt21: resp.DataSalt21,
			Salt22: resp.DataSalt22,
		},
	}, nil
}

type recoverRequest struct {
	Username string `json:"username"`
	R1       []byte `json:"r1"`
	R2       []byte `json:"r2"`
}

type recoverResponse struct {
	RecoveryKey []byte `json:"recovery_key"`
}

func (c *HTTPClient) Recover(ctx context.Context, username string, r1, r2 []byte) ([]byte, error) {
	var resp recoverResponse
	if err := c.post(ctx, "/recover", recoverRequest{Username: username, R1: r1, R2: r2}, &resp); err != nil {
		return nil, err
	}
	return resp.RecoveryKey, nil
}

type recoveryChangeRequest struct {
	Username    string `json:"username"`
	Recovery1   []byte `json:"recovery_1"`
	Recovery2   []byte `json:"recovery_2"`
	NewPassword []byte `json:"new_password"`
	NewSalt1    []byte `json:"new_salt_1"`
	NewSalt2    []byte `json:"new_salt_2"`
	NewMaster   []byte `json:"new_master"`
}

func (c *HTTPClient) RecoveryChange(ctx context.Context, username string, r1, r2 []byte, res *vaultstore.RewrapResult) error {
	req := recoveryChangeRequest{
		Username:    username,
		Recovery1:   r1,
		Recovery2:   r2,
		NewPassword: res.ServerPassword,
		NewSalt1:    res.PassSalt1,
		NewSalt2:    res.PassSalt2,
		NewMaster:   res.Header,
	}
	return c.post(ctx, "/recovery_change", req, &struct{}{})
}

type checkRequest struct {
	Username       string `json:"username"`
	Password       []byte `json:"password"`
	LastUpdateTime int64  `json:"last_update_time"`
}

type checkResponse struct {
	Updates map[string]WireChange `json:"updates"`
	Time    int64                 `json:"time"`
}

func (c *HTTPClient) Check(ctx context.Context, username string, password []byte, since int64) (map[string]changeset.Change, int64, error) {
	var resp checkResponse
	req := checkRequest{Username: username, Password: password, LastUpdateTime: since}
	if err := c.post(ctx, "/check", req, &resp); err != nil {
		return nil, 0, err
	}
	return ChangesFromWire(resp.Updates), resp.Time, nil
}

type updateRequest struct {
	Username string                `json:"username"`
	Password []byte                `json:"password"`
	Updates  map[string]WireChange `json:"updates"`
}

func (c *HTTPClient) Update(ctx context.Context, username string, password []byte, updates map[string]changeset.Change) (int64, error) {
	var resp timeResponse
	req := updateRequest{Username: username, Password: password, Updates: WireUpdates(updates)}
	if err := c.post(ctx, "/update", req, &resp); err != nil {
		return 0, err
	}
	return resp.Time, nil
}

type downloadRequest struct {
	Username string `json:"username"`
	Password []byte `json:"password"`
}

type downloadResponse struct {
	Header []byte                `json:"header"`
	Pairs  map[string]WireChange `json:"pairs"`
	Time   int64                 `json:"time"`
}

func (c *HTTPClient) Download(ctx context.Context, username string, password []byte) (*VaultDownload, error) {
	var resp downloadResponse
	if err := c.post(ctx, "/download", downloadRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}

	records := make([]vaultstore.Record, 0, len(resp.Pairs))
	for key, w := range resp.Pairs {
		if w.Deleted {
			continue
		}
		records = append(records, vaultstore.Record{
			Key:        key,
			Kind:       vaultstore.KindCredentialPair,
			Payload:    w.Value,
			ModifiedAt: w.Timestamp,
		})
	}
	return &VaultDownload{Header: resp.Header, Records: records, Time: resp.Time}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, common.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", path, common.ErrUnauthorized)
	default:
		// Drain so the connection can be reused, then report unavailable.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, common.ErrUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
