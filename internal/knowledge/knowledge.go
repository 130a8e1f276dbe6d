package knowledge

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"go.uber.org/zap"

	"dompeassist/internal/logger"
)

//go:embed fallback/knowledge_base.md fallback/dompe_info.txt
var fallbackFS embed.FS

var fallbackFiles = []string{"fallback/knowledge_base.md", "fallback/dompe_info.txt"}

// Document is one named knowledge source.
type Document struct {
	Name    string
	Content string
}

// Base is the knowledge loaded at startup. It is never modified afterwards.
type Base struct {
	docs     []Document
	embedded bool
}

// NewBase builds a Base from documents read from a directory.
func NewBase(docs ...Document) *Base {
	return &Base{docs: append([]Document(nil), docs...)}
}

func (b *Base) Documents() []Document {
	if b == nil {
		return nil
	}
	return append([]Document(nil), b.docs...)
}

func (b *Base) Empty() bool {
	return b == nil || len(b.docs) == 0
}

// Render returns the text placed under KNOWLEDGE BASE in the system prompt.
// Directory documents are framed with BEGIN/END markers; embedded documents
// are joined as-is.
func (b *Base) Render() string {
	if b.Empty() {
		return ""
	}
	var sb strings.Builder
	for i, doc := range b.docs {
		if b.embedded {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(strings.TrimRight(doc.Content, "\n"))
			continue
		}
		fmt.Fprintf(&sb, "### BEGIN %s ###\n%s\n### END %s ###\n\n", doc.Name, doc.Content, doc.Name)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Load reads every .txt and .md file in dir, in name order. When dir does not
// exist the embedded documents are used instead. Files that cannot be read are
// skipped.
func Load(ctx context.Context, dir string) (*Base, error) {
	log := logger.WithCtx(ctx).With(zap.String("dir", dir))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || dir == "" {
			log.Info("knowledge directory not found, using embedded documents")
			return Embedded()
		}
		return nil, fmt.Errorf("read knowledge dir: %w", err)
	}

	loader, err := newFileLoader(ctx)
	if err != nil {
		return nil, err
	}

	base := &Base{}
	for _, entry := range entries {
		if entry.IsDir() || !isKnowledgeFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		docs, err := loader.Load(ctx, document.Source{URI: path})
		if err != nil {
			log.Warn("skip knowledge file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		var content strings.Builder
		for _, d := range docs {
			if d == nil {
				continue
			}
			content.WriteString(d.Content)
		}
		base.docs = append(base.docs, Document{Name: entry.Name(), Content: content.String()})
		log.Debug("loaded knowledge file", zap.String("file", entry.Name()))
	}

	if base.Empty() {
		log.Warn("no knowledge documents found, continuing without knowledge base")
	} else {
		log.Info("knowledge base loaded", zap.Int("documents", len(base.docs)))
	}
	return base, nil
}

// Embedded returns the documents bundled with the binary.
func Embedded() (*Base, error) {
	base := &Base{embedded: true}
	for _, name := range fallbackFiles {
		data, err := fallbackFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", name, err)
		}
		base.docs = append(base.docs, Document{Name: filepath.Base(name), Content: string(data)})
	}
	return base, nil
}

func newFileLoader(ctx context.Context) (*file.FileLoader, error) {
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init knowledge parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init knowledge loader: %w", err)
	}
	return loader, nil
}

func isKnowledgeFile(name string) bool {
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md")
}
