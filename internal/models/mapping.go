package models

// URLMapping связывает короткий код с длинным URL.
// Временные метки хранятся в Unix-секундах.
type URLMapping struct {
	ShortCode   string `json:"short_code" dynamodbav:"short_code"`
	LongURL     string `json:"long_url" dynamodbav:"long_url"`
	CreatedAt   int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt   int64  `json:"expires_at" dynamodbav:"expires_at"`
	AccessCount int64  `json:"access_count" dynamodbav:"access_count"`
}

// ExpiredAt сообщает, истекла ли ссылка к моменту now (Unix-секунды).
func (m *URLMapping) ExpiredAt(now int64) bool {
	return now > m.ExpiresAt
}

// ShortenInput входные данные для создания короткой ссылки.
type ShortenInput struct {
	LongURL    string
	Alias      string
	TTLMinutes *int
}
