package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/SergeiKhy/shortlink/internal/repository"
)

// Константы генератора
const (
	initialCodeLength = 5  // Длина первого кандидата
	maxProbes         = 10 // Сколько раз можно удлинить код при коллизии
	saltSize          = 4  // Байт соли на один вызов
)

// CodeGenerator выводит короткий код из SHA-256 от URL с солью.
// Соль берётся один раз на вызов; при коллизии код удлиняется на один символ
// того же хеша.
type CodeGenerator struct {
	repo   repository.MappingRepository
	random io.Reader
}

// NewCodeGenerator создаёт генератор. random == nil означает crypto/rand.
func NewCodeGenerator(repo repository.MappingRepository, random io.Reader) *CodeGenerator {
	if random == nil {
		random = rand.Reader
	}
	return &CodeGenerator{repo: repo, random: random}
}

// Generate возвращает свободный короткий код для longURL
func (g *CodeGenerator) Generate(ctx context.Context, longURL string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(g.random, salt); err != nil {
		return "", fmt.Errorf("failed to draw salt: %w", err)
	}

	sum := sha256.Sum256([]byte(longURL + "-" + hex.EncodeToString(salt)))
	hash := hex.EncodeToString(sum[:])

	length := initialCodeLength
	retries := maxProbes
	for retries > 0 {
		candidate := hash[:length]

		_, err := g.repo.Get(ctx, candidate)
		if errors.Is(err, repository.ErrMappingNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", ErrDatabase.wrap(err)
		}

		length++
		retries--
	}

	return "", ErrMaxRetriesExceeded
}
