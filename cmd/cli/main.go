package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"vlink/internal/config"
	"vlink/internal/export"
	"vlink/internal/links"
	"vlink/internal/models"
	"vlink/internal/qrcode"
	"vlink/internal/storage"
)

const pageSize = 500

const usage = `Usage: vlink-cli <command> [flags]

Commands:
  export  -format json|xlsx -o FILE   write every link to FILE
  import  -i FILE                     load links from a JSON export
  qr      -text TEXT -o FILE          write a QR code (PNG or SVG by extension)
  stats   -code CODE                  print the counters for a short code
`

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "export":
		return runExport(ctx, args, stdout)
	case "import":
		return runImport(ctx, args, stdout)
	case "qr":
		return runQR(args, stdout)
	case "stats":
		return runStats(ctx, args, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

// openService loads configuration and opens the configured store.
func openService() (*links.Service, links.Store, error) {
	if err := config.LoadConfig(); err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(config.AppConfig.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return links.NewService(store), store, nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatName := fs.String("format", "json", "output format: json or xlsx")
	output := fs.String("o", "", "output file (default stdout for json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	if format == export.XLSX && *output == "" {
		return errors.New("xlsx export needs -o")
	}

	svc, store, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := listAll(ctx, svc)
	if err != nil {
		return err
	}

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, format, all); err != nil {
		return err
	}
	if *output != "" {
		fmt.Fprintf(stdout, "Exported %d links to %s\n", len(all), *output)
	}
	return nil
}

func listAll(ctx context.Context, svc *links.Service) ([]models.Link, error) {
	var all []models.Link
	for offset := 0; ; offset += pageSize {
		page, err := svc.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	input := fs.String("i", "", "JSON file written by export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("-i is required")
	}

	f, err := os.Open(*input)
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := export.ReadJSON(f)
	if err != nil {
		return err
	}

	svc, store, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	imported, skipped, err := svc.Import(ctx, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d links, skipped %d\n", imported, skipped)
	return nil
}

func runQR(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("qr", flag.ContinueOnError)
	text := fs.String("text", "", "text to encode")
	output := fs.String("o", "qr.png", "output file, .png, .jpg or .svg")
	levelName := fs.String("level", "M", "error correction level: L, M, Q or H")
	width := fs.Int("width", qrcode.DefaultWidth, "image width in pixels")
	margin := fs.Int("margin", qrcode.DefaultMargin, "quiet zone in modules")
	dark := fs.String("dark", qrcode.DefaultDark, "dark module color")
	light := fs.String("light", qrcode.DefaultLight, "light module color")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *text == "" {
		return errors.New("-text is required")
	}

	level, err := qrcode.ParseLevel(*levelName)
	if err != nil {
		return err
	}
	opts := qrcode.DefaultOptions()
	opts.Level = level
	sym, err := qrcode.Encode(*text, opts)
	if err != nil {
		return err
	}

	render := qrcode.DefaultRenderOptions()
	render.Width = *width
	render.Margin = *margin
	if render.Dark, err = qrcode.ParseHexColor(*dark); err != nil {
		return err
	}
	if render.Light, err = qrcode.ParseHexColor(*light); err != nil {
		return err
	}

	var data []byte
	switch ext := strings.ToLower(*output); {
	case strings.HasSuffix(ext, ".svg"):
		data = []byte(sym.SVG(render))
	case strings.HasSuffix(ext, ".jpg"), strings.HasSuffix(ext, ".jpeg"):
		render.Type = qrcode.JPEG
		data, err = sym.Buffer(render)
	default:
		data, err = sym.Buffer(render)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return err
	}

	info := sym.Info()
	fmt.Fprintf(stdout, "Wrote %s (version %d, level %s, mask %d)\n", *output, info.Version, info.ErrorCorrectionLevel, info.MaskPattern)
	return nil
}

func runStats(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	code := fs.String("code", "", "short code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *code == "" {
		return errors.New("-code is required")
	}

	svc, store, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	link, err := svc.Stats(ctx, *code)
	if err != nil {
		return err
	}
	lastAccessed := "never"
	if link.LastAccessedAt != nil {
		lastAccessed = link.LastAccessedAt.Format("2006-01-02 15:04:05 MST")
	}
	fmt.Fprintf(stdout, "Code:          %s\n", link.Code)
	fmt.Fprintf(stdout, "Destination:   %s\n", link.Destination)
	fmt.Fprintf(stdout, "Custom:        %t\n", link.IsCustom)
	fmt.Fprintf(stdout, "Visits:        %d\n", link.VisitCount)
	fmt.Fprintf(stdout, "QR downloads:  %d\n", link.QRDownloads)
	fmt.Fprintf(stdout, "Created:       %s\n", link.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(stdout, "Last accessed: %s\n", lastAccessed)
	return nil
}
