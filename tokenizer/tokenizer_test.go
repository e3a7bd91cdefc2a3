package tokenizer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EchoCog/aphroditecho/huggingface"
)

func TestVocabSize(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		want    int
		wantErr bool
	}{
		{
			name: "bpe mit added tokens",
			json: `{"added_tokens":[{"id":5,"content":"<|end|>","special":true}],
				"model":{"type":"BPE","vocab":{"a":0,"b":1,"c":2}}}`,
			want: 6,
		},
		{
			name: "luecken im vokabular",
			json: `{"model":{"type":"BPE","vocab":{"a":0,"z":31999}}}`,
			want: 32000,
		},
		{
			name: "unigram",
			json: `{"model":{"type":"Unigram","vocab":[["<unk>",0],["a",-1.5],["b",-2.0]]}}`,
			want: 3,
		},
		{
			name:    "leer",
			json:    `{"model":{"type":"BPE","vocab":{}}}`,
			wantErr: true,
		},
		{
			name:    "ungueltig",
			json:    `{"model":`,
			wantErr: true,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VocabSize(strings.NewReader(tt.json))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Fehler erwartet, erhalten %d", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("erwartet %d, erhalten %d", tt.want, got)
			}
		})
	}
}

func TestRepoVocabSize(t *testing.T) {
	dir := t.TempDir()
	r := Repo{huggingface.NewLocalRepo(dir)}

	if _, err := r.VocabSize(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("fs.ErrNotExist erwartet, erhalten %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, File), []byte(`{"model":{"vocab":{"a":0,"b":1}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if n, err := r.VocabSize(); err != nil || n != 2 {
		t.Errorf("erwartet 2, erhalten %d (%v)", n, err)
	}
}
