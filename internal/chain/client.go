package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Instruction - непрозрачная нагрузка для гейтвея: что отправить и от
// чьего имени. Подпись и доставка транзакции - забота гейтвея.
type Instruction struct {
	Kind     string            `json:"kind"`
	GameID   int64             `json:"game_id"`
	Signer   string            `json:"signer"`
	Accounts map[string]string `json:"accounts"`
	Args     map[string]any    `json:"args,omitempty"`
}

// клиент гейтвея программы: чтение аккаунтов и отправка инструкций
type Client struct {
	baseURL    string
	apiKey     string
	signingKey string
	httpClient *http.Client
}

// NewClient создает новый клиент гейтвея
func NewClient(baseURL, apiKey, signingKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		signingKey: signingKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ответ гейтвея на отправку инструкции
type submitResponse struct {
	Signature string   `json:"signature"`
	Error     string   `json:"error,omitempty"`
	Logs      []string `json:"logs,omitempty"`
}

// GetGameAccount читает игровой аккаунт; nil без ошибки если аккаунта нет
func (c *Client) GetGameAccount(ctx context.Context, address PublicKey) (json.RawMessage, error) {
	return c.getAccount(ctx, "game", address)
}

// GetPlayerAccount читает аккаунт участника; nil без ошибки если аккаунта нет
func (c *Client) GetPlayerAccount(ctx context.Context, address PublicKey) (json.RawMessage, error) {
	return c.getAccount(ctx, "player", address)
}

func (c *Client) getAccount(ctx context.Context, kind string, address PublicKey) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/accounts/%s/%s", c.baseURL, kind, address)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportFailure{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TransportFailure{Err: fmt.Errorf("ошибка API: %s - %s", resp.Status, string(body))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportFailure{Err: err}
	}
	return json.RawMessage(raw), nil
}

// SubmitInstruction отправляет инструкцию через гейтвей и возвращает
// подпись транзакции. Отказ программы приходит как ProgramRejection,
// отсутствие ответа - как TransportFailure. Повторов нет: дубль
// отправки клиент гарантировать не может.
func (c *Client) SubmitInstruction(ctx context.Context, ix Instruction) (string, error) {
	payload, err := json.Marshal(ix)
	if err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s/instructions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeader(req)
	if c.signingKey != "" {
		req.Header.Set("X-Signing-Key", c.signingKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportFailure{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result submitResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode >= 500 {
			return "", &TransportFailure{Err: fmt.Errorf("ошибка API: %s", resp.Status)}
		}
		return "", &TransportFailure{Err: fmt.Errorf("неразборчивый ответ: %s - %s", resp.Status, string(body))}
	}

	switch {
	case resp.StatusCode == http.StatusOK && result.Signature != "":
		return result.Signature, nil
	case resp.StatusCode >= 500:
		return "", &TransportFailure{Err: fmt.Errorf("ошибка API: %s - %s", resp.Status, result.Error)}
	default:
		reason := result.Error
		if reason == "" {
			reason = fmt.Sprintf("инструкция отклонена: %s", resp.Status)
		}
		return "", &ProgramRejection{Reason: reason, Logs: result.Logs}
	}
}

// WaitForTransaction ожидает появления транзакции
func (c *Client) WaitForTransaction(ctx context.Context, signature string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		found, err := c.getTransaction(ctx, signature)
		if err != nil {
			return err
		}
		if found {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConfirmPollInterval):
		}
	}

	return &TransportFailure{Err: fmt.Errorf("транзакция %s не найдена в течение таймаута", signature)}
}

func (c *Client) getTransaction(ctx context.Context, signature string) (bool, error) {
	reqURL := fmt.Sprintf("%s/transactions/%s", c.baseURL, signature)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return false, err
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &TransportFailure{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, &TransportFailure{Err: fmt.Errorf("ошибка API: %s - %s", resp.Status, string(body))}
	}
	return true, nil
}

// setAuthHeader устанавливает заголовок авторизации если ключ задан
func (c *Client) setAuthHeader(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
