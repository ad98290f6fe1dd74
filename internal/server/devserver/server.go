// Package devserver is a development stand-in for the remote vault service.
// It speaks the production JSON contract over plain HTTP against an
// in-memory account store, so the client and its sync protocol can be
// exercised end to end without the real backend.
package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noodlevault/noodlevault/internal/client/client"
	"github.com/noodlevault/noodlevault/internal/common"
)

type Handler struct {
	Store *Store
}

func NewRouter(store *Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := &Handler{Store: store}
	r.POST("/salt", h.Salt)
	r.POST("/register", h.Register)
	r.POST("/recovery_questions", h.RecoveryQuestions)
	r.POST("/recover", h.Recover)
	r.POST("/recovery_change", h.RecoveryChange)
	r.POST("/check", h.Check)
	r.POST("/update", h.Update)
	r.POST("/download", h.Download)

	return r
}

type usernameBody struct {
	Username string `json:"username"`
}

func (h *Handler) Salt(c *gin.Context) {
	var body usernameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	salt1, salt2, err := h.Store.Salts(body.Username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pass_salt_1": salt1, "pass_salt_2": salt2})
}

type registerBody struct {
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

func (h *Handler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	t, err := h.Store.CreateAccount(body.Username, Registration{
		Password:    body.Password,
		PassSalt1:   body.PassSalt1,
		PassSalt2:   body.PassSalt2,
		Q1:          body.Q1,
		Q2:          body.Q2,
		Recovery1:   body.Recovery1,
		Recovery2:   body.Recovery2,
		DataSalt11:  body.DataSalt11,
		DataSalt12:  body.DataSalt12,
		DataSalt21:  body.DataSalt21,
		DataSalt22:  body.DataSalt22,
		RecoveryKey: body.RecoveryKey,
		Header:      body.EncryptedMaster,
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User exists"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"time": t})
}

func (h *Handler) RecoveryQuestions(c *gin.Context) {
	var body usernameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	q1, q2, salts, err := h.Store.RecoveryData(body.Username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"q1":           q1,
		"q2":           q2,
		"data_salt_11": salts[0],
		"data_salt_12": salts[1],
		"data_salt_21": salts[2],
		"data_salt_22": salts[3],
	})
}

type recoverBody struct {
	Username string `json:"username"`
	R1       []byte `json:"r1"`
	R2       []byte `json:"r2"`
}

func (h *Handler) Recover(c *gin.Context) {
	var body recoverBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	key, err := h.Store.VerifyRecovery(body.Username, body.R1, body.R2)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Recovery verification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recovery_key": key})
}

type recoveryChangeBody struct {
	Username    string `json:"username"`
	Recovery1   []byte `json:"recovery_1"`
	Recovery2   []byte `json:"recovery_2"`
	NewPassword []byte `json:"new_password"`
	NewSalt1    []byte `json:"new_salt_1"`
	NewSalt2    []byte `json:"new_salt_2"`
	NewMaster   []byte `json:"new_master"`
}

func (h *Handler) RecoveryChange(c *gin.Context) {
	var body recoveryChangeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.Store.ChangePassword(body.Username, body.Recovery1, body.Recovery2,
		body.NewPassword, body.NewSalt1, body.NewSalt2, body.NewMaster)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Recovery verification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type checkBody struct {
	Username       string `json:"username"`
	Password       []byte `json:"password"`
	LastUpdateTime int64  `json:"last_update_time"`
}

func (h *Handler) Check(c *gin.Context) {
	var body checkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !h.Store.Authenticate(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bad credentials"})
		return
	}

	changes, t := h.Store.ChangesSince(body.Username, body.LastUpdateTime)
	c.JSON(http.StatusOK, gin.H{"updates": wireFromEntries(changes), "time": t})
}

type updateBody struct {
	Username string                       `json:"username"`
	Password []byte                       `json:"password"`
	Updates  map[string]client.WireChange `json:"updates"`
}

func (h *Handler) Update(c *gin.Context) {
	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !h.Store.Authenticate(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bad credentials"})
		return
	}

	t := h.Store.ApplyUpdates(body.Username, entriesFromWire(body.Updates))
	c.JSON(http.StatusOK, gin.H{"time": t})
}

type downloadBody struct {
	Username string `json:"username"`
	Password []byte `json:"password"`
}

func (h *Handler) Download(c *gin.Context) {
	var body downloadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !h.Store.Authenticate(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bad credentials"})
		return
	}

	header, entries, t := h.Store.Snapshot(body.Username)
	c.JSON(http.StatusOK, gin.H{"header": header, "pairs": wireFromEntries(entries), "time": t})
}

func wireFromEntries(entries map[string]entry) map[string]client.WireChange {
	out := make(map[string]client.WireChange, len(entries))
	for key, e := range entries {
		out[key] = client.WireChange{Value: e.value, Deleted: e.deleted, Timestamp: e.timestamp}
	}
	return out
}

func entriesFromWire(updates map[string]client.WireChange) map[string]entry {
	out := make(map[string]entry, len(updates))
	for key, w := range updates {
		out[key] = entry{value: w.Value, deleted: w.Deleted, timestamp: w.Timestamp}
	}
	return out
}
