package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/ivlev/scenecomp/internal/analyzer"
	"github.com/ivlev/scenecomp/internal/config"
	"github.com/ivlev/scenecomp/internal/engine"
	"github.com/ivlev/scenecomp/internal/render"
	"github.com/ivlev/scenecomp/internal/system"
	"github.com/ivlev/scenecomp/internal/video"
)

var buildVersion = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: scenecomp [still|animate|encode|resume|scenes] [flags]\n\n")
	flag.PrintDefaults()
}

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	mode := engine.ModeAnimate
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		mode = engine.Mode(args[0])
		args = args[1:]
	}

	def := config.Default()

	projectPtr := flag.String("project", "", "YAML-файл проекта со сценами (по умолчанию: самый свежий в input/)")
	outputDirPtr := flag.String("out", def.OutputDir, "Папка для кадров, сессии и видео")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в -out)")
	widthPtr := flag.Int("width", def.Width, "Ширина")
	heightPtr := flag.Int("height", def.Height, "Высота")
	percentPtr := flag.Int("percent", def.Percentage, "Масштаб разрешения, %")
	samplesPtr := flag.Int("samples", def.Samples, "Сэмплы рендера")
	framesPtr := flag.Int("frames", def.Frames, "Количество кадров анимации")
	fpsPtr := flag.Int("fps", def.FPS, "FPS")
	rangePtr := flag.Float64("move-range", def.MoveRange, "Амплитуда движения объектов")
	freqPtr := flag.Float64("frequency", def.Frequency, "Частота движения объектов")
	phasePtr := flag.String("phase", def.Phase, "Фаза синусоиды: per-frame (каждый кадр заново) или fixed (плавно)")
	seedPtr := flag.Int64("seed", 0, "Seed генератора фаз (0 - по времени)")
	viewerPtr := flag.Bool("viewer", false, "Подключить viewer к композитору")
	bgPtr := flag.String("background", "", "Фоновая подложка: PNG/JPEG или PDF")
	bgPagePtr := flag.Int("background-page", def.BackgroundPage, "Страница PDF для подложки (с единицы)")
	bgColorPtr := flag.String("background-color", "0.5,0.5,0.5,1", "Цвет фона под сценами: r,g,b[,a] от 0 до 1 или none")
	stampPtr := flag.Bool("stamp", false, "QR-штамп с номером кадра")
	detectorPtr := flag.String("detector", def.Detector, "Анализ покрытия: coverage, luma")
	framesDirPtr := flag.String("frames-dir", "", "Папка с кадрами для режима encode")
	sessionPtr := flag.String("session", "", "Файл сессии (по умолчанию: <out>/session.yaml)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	statsPtr := flag.Bool("stats", false, "Отчет о производительности и benchmark.log")
	debugPtr := flag.Bool("debug", false, "Отладочный лог растеризатора")

	flag.Usage = usage
	flag.CommandLine.Parse(args)

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := config.Default()
	projectFile := *projectPtr
	if projectFile == "" {
		if latest, err := system.FindLatest("input", ".yaml", ".yml"); err == nil {
			projectFile = latest
			fmt.Printf("[*] Выбран проект: %s\n", projectFile)
		}
	}
	if projectFile != "" {
		if err := cfg.LoadProject(projectFile); err != nil {
			log.Fatalf("[-] Ошибка чтения проекта: %v", err)
		}
	}

	// Флаги командной строки важнее файла проекта
	overrides := map[string]func(){
		"out":             func() { cfg.OutputDir = *outputDirPtr },
		"output":          func() { cfg.OutputVideo = *outputPtr },
		"width":           func() { cfg.Width = *widthPtr },
		"height":          func() { cfg.Height = *heightPtr },
		"percent":         func() { cfg.Percentage = *percentPtr },
		"samples":         func() { cfg.Samples = *samplesPtr },
		"frames":          func() { cfg.Frames = *framesPtr },
		"fps":             func() { cfg.FPS = *fpsPtr },
		"move-range":      func() { cfg.MoveRange = *rangePtr },
		"frequency":       func() { cfg.Frequency = *freqPtr },
		"phase":           func() { cfg.Phase = *phasePtr },
		"seed":            func() { cfg.Seed = *seedPtr },
		"viewer":          func() { cfg.Viewer = *viewerPtr },
		"background":      func() { cfg.Background = *bgPtr },
		"background-page": func() { cfg.BackgroundPage = *bgPagePtr },
		"background-color": func() {
			c, err := config.ParseColor(*bgColorPtr)
			if err != nil {
				log.Fatalf("[-] Ошибка цвета фона: %v", err)
			}
			cfg.BackgroundColor = c
		},
		"stamp":      func() { cfg.Stamp = *stampPtr },
		"detector":   func() { cfg.Detector = *detectorPtr },
		"frames-dir": func() { cfg.FramesDir = *framesDirPtr },
		"session":    func() { cfg.SessionFile = *sessionPtr },
		"quality":    func() { cfg.Quality = *qualityPtr },
	}
	for name, apply := range overrides {
		if set[name] {
			apply()
		}
	}
	cfg.ShowStats = *statsPtr
	cfg.Debug = *debugPtr
	cfg.BuildVersion = buildVersion

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if mode == engine.ModeEncode && cfg.FramesDir == "" {
		cfg.FramesDir = filepath.Join(cfg.OutputDir, "frames")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	if cfg.OutputVideo == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.OutputVideo = filepath.Join(cfg.OutputDir, fmt.Sprintf("scenecomp_%s.mp4", timestamp))
	}

	cfg.VideoEncoder = system.GetBestH264Encoder()
	if cfg.VideoEncoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
	}
	if cfg.Quality == 0 {
		cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
	}

	if cfg.Debug {
		render.EnableDebugLogging(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	detector, err := analyzer.NewDetector(cfg.Detector)
	if err != nil {
		log.Fatalf("[-] Ошибка анализатора: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Инициализируем зависимости
	muxer := &video.FFmpegMuxer{Encoder: cfg.VideoEncoder, Quality: cfg.Quality}
	project := engine.NewProject(cfg, render.NewSoftware(), muxer, detector)
	if err := project.Run(ctx, mode); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	switch mode {
	case engine.ModeAnimate, engine.ModeEncode:
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
	default:
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputDir)
	}
}
