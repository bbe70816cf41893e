package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"filippo.io/age"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"generic-exporter/internal/ports"
)

const (
	secretFileSuffix  = ".age"
	secretConfigField = "config"
)

var secretIDDisallowed = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// AgeSecretAdapter reads secrets stored as age-encrypted YAML documents,
// one file per secret id. The document must carry a `config` field
// holding a JSON object.
type AgeSecretAdapter struct {
	Dir          string
	IdentityPath string
}

func NewAgeSecretAdapter(dir string, identityPath string) AgeSecretAdapter {
	return AgeSecretAdapter{Dir: dir, IdentityPath: identityPath}
}

// SecretFilename maps a secret id such as "secret:abc" to its file name.
func SecretFilename(secretID string) string {
	return secretIDDisallowed.ReplaceAllString(secretID, "_") + secretFileSuffix
}

func (a AgeSecretAdapter) Fetch(ctx context.Context, secretID string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Dir) == "" || strings.TrimSpace(secretID) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("secret '%s' does not exist", secretID))
	}
	path := filepath.Join(a.Dir, SecretFilename(secretID))
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, secretReadError(secretID, err)
	}
	identities, err := a.identities()
	if err != nil {
		return nil, err
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf("permission for secret '%s' has not been granted", secretID)).
				WithCause(err)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("could not decode secret '%s'", secretID)).
			WithCause(err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("could not decode secret '%s'", secretID)).
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Str("secret", secretID).Msg("secret decrypted")
	return decodeSecretConfig(secretID, plaintext)
}

func (a AgeSecretAdapter) identities() ([]age.Identity, error) {
	file, err := os.Open(a.IdentityPath)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("secret identity is not readable").
			WithCause(err)
	}
	defer file.Close()
	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("secret identity is invalid").
			WithCause(err)
	}
	return identities, nil
}

func secretReadError(secretID string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("secret '%s' does not exist", secretID)).
			WithCause(err)
	case errors.Is(err, fs.ErrPermission):
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg(fmt.Sprintf("permission for secret '%s' has not been granted", secretID)).
			WithCause(err)
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("could not decode secret '%s'", secretID)).
			WithCause(err)
	}
}

// decodeSecretConfig extracts the config overlay from decrypted content.
func decodeSecretConfig(secretID string, plaintext []byte) (map[string]any, error) {
	var content map[string]any
	if err := yaml.Unmarshal(plaintext, &content); err != nil {
		return nil, secretContentError(fmt.Sprintf("the content of secret '%s' is not a YAML mapping", secretID))
	}
	raw, _ := content[secretConfigField].(string)
	if strings.TrimSpace(raw) == "" {
		return nil, secretContentError(fmt.Sprintf("the config field is missing in secret '%s'", secretID))
	}
	var parsed any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(raw)), &parsed); err != nil {
		return nil, secretContentError(fmt.Sprintf("the config field must be valid JSON in secret '%s'", secretID))
	}
	config, ok := parsed.(map[string]any)
	if !ok {
		return nil, secretContentError(fmt.Sprintf("the config field must decode to an object in secret '%s'", secretID))
	}
	return config, nil
}

func secretContentError(msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg)
}

var _ ports.SecretSourcePort = AgeSecretAdapter{}
