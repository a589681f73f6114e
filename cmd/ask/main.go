// Command ask sends one livestock question to the advisory model and prints
// the answer rendered for the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ashureev/kalnadai-care/internal/advisory"
	"github.com/ashureev/kalnadai-care/internal/config"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/datauri"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(context.Background(), os.Args[1:], logger); err != nil {
		fmt.Fprintln(os.Stderr, "ask:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	langFlag := fs.String("lang", "", "reply language: ta or en (default DEFAULT_LANGUAGE)")
	imagePath := fs.String("image", "", "path to a photo of the animal")
	animal := fs.String("animal", "", "ask the starter question for a catalog animal (cow, goat, chicken, sheep, buffalo)")
	width := fs.Int("width", 80, "word wrap width")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lang := cfg.DefaultLanguage
	if *langFlag != "" {
		l, ok := domain.ParseLanguage(*langFlag)
		if !ok {
			return fmt.Errorf("unknown language %q", *langFlag)
		}
		lang = l
	}

	client, err := advisory.NewOpenAIClient(advisory.ClientConfig{
		APIKey:  cfg.Advisory.APIKey,
		BaseURL: cfg.Advisory.BaseURL,
		Model:   cfg.Advisory.Model,
		Timeout: cfg.Advisory.Timeout,
	})
	if err != nil {
		return err
	}
	svc := conversation.NewService(conversation.NewStore(lang), advisory.NewService(client, logger), conversation.ServiceConfig{
		DeviceID: "cli",
		Timeout:  cfg.Advisory.Timeout,
		Logger:   logger,
	})

	var ex conversation.Exchange
	if *animal != "" {
		ex, err = svc.AskAbout(ctx, *animal)
	} else {
		in := conversation.Input{Text: strings.Join(fs.Args(), " ")}
		if *imagePath != "" {
			if in.Image, err = loadImage(*imagePath); err != nil {
				return err
			}
		}
		ex, err = svc.Submit(ctx, in)
	}
	if errors.Is(err, conversation.ErrEmptyInput) {
		fs.Usage()
		return errors.New("nothing to ask: pass a question, --image or --animal")
	}
	if err != nil {
		return err
	}

	return render(ex, lang, *width)
}

func loadImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !datauri.IsImage(mimeType) {
		return "", fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return datauri.Encode(mimeType, data), nil
}

func render(ex conversation.Exchange, lang domain.Language, width int) error {
	if ex.Reply == nil {
		return errors.New("no reply")
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	header := "## " + i18n.For(lang).Consultation + "\n\n"
	out, err := r.Render(header + ex.Reply.Text)
	if err != nil {
		return fmt.Errorf("render reply: %w", err)
	}
	fmt.Print(out)
	if ex.Failed {
		return errors.New("advisory request failed")
	}
	return nil
}
