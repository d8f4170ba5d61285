package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/doipscope/internal/capture"
	"github.com/danmuck/doipscope/internal/config"
	"github.com/danmuck/doipscope/internal/doip"
	"github.com/danmuck/doipscope/internal/frame"
	"github.com/danmuck/doipscope/internal/metrics"
	"github.com/danmuck/doipscope/internal/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type session struct {
	cfg     config.Config
	log     zerolog.Logger
	decoder *doip.Dispatcher
	metrics *metrics.DecodeMetrics
	out     io.Writer
	docs    []*render.Document
	index   int
}

func run(cfg config.Config, logger zerolog.Logger, paths []string, stdin io.Reader, stdout io.Writer) error {
	d, err := doip.NewDefaultDispatcher(doip.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}
	s := &session{
		cfg:     cfg,
		log:     logger,
		decoder: d,
		metrics: metrics.NewDecodeMetricsWithRegistry(prometheus.NewRegistry()),
		out:     stdout,
	}

	if cfg.Output.ShowRegistry {
		if err := render.WriteRegistry(stdout, d.Registry()); err != nil {
			return err
		}
		fmt.Fprintln(stdout)
	}

	for _, path := range paths {
		if err := s.processPath(path, stdin); err != nil {
			return err
		}
	}

	if cfg.Output.Format != render.FormatText {
		docs := s.docs
		if docs == nil {
			docs = []*render.Document{}
		}
		if err := render.WriteDocuments(stdout, cfg.Output.Format, docs); err != nil {
			return err
		}
	}
	if cfg.Output.Metrics {
		counts, err := s.metrics.OutcomeCounts()
		if err != nil {
			return err
		}
		s.log.Info().
			Int("messages", s.index).
			Uint64(metrics.OutcomeComplete, counts[metrics.OutcomeComplete]).
			Uint64(metrics.OutcomePartial, counts[metrics.OutcomePartial]).
			Uint64(metrics.OutcomeUnknown, counts[metrics.OutcomeUnknown]).
			Uint64(metrics.OutcomeMalformed, counts[metrics.OutcomeMalformed]).
			Msg("decode totals")
	}
	return nil
}

func (s *session) processPath(path string, stdin io.Reader) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	s.log.Debug().Str("path", path).Str("format", string(s.cfg.Input.Format)).Msg("reading input")

	switch s.cfg.Input.Format {
	case config.InputHex:
		return s.processHex(r)
	case config.InputPcap:
		return s.processPcap(r)
	default:
		return s.processBinary(r)
	}
}

// processBinary reads back-to-back messages until EOF.
func (s *session) processBinary(r io.Reader) error {
	return s.readFrames(bufio.NewReader(r), "")
}

// processHex decodes the messages on each line. Blank lines and '#'
// comments are skipped; whitespace and ':' separators inside a line are
// ignored.
func (s *session) processHex(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*int(s.cfg.Input.Limits.MaxPayloadBytes)+64)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', ':':
				return -1
			}
			return r
		}, text)
		if text == "" {
			continue
		}
		where := fmt.Sprintf("line %d", line)
		raw, err := hex.DecodeString(text)
		if err != nil {
			s.emitError(nil, fmt.Errorf("%s: %w", where, err))
			continue
		}
		if err := s.readFrames(bytes.NewReader(raw), where); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// readFrames decodes every message in r. Frame errors are reported and
// reading goes on; only I/O failures stop it.
func (s *session) readFrames(r io.Reader, where string) error {
	for {
		f, err := frame.ReadFrame(r, s.cfg.Input.Limits)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if !frame.Recoverable(err) {
				return fmt.Errorf("read input: %w", err)
			}
			if where != "" {
				err = fmt.Errorf("%s: %w", where, err)
			}
			if errors.Is(err, frame.ErrShortHeader) {
				s.emitError(nil, err)
			} else {
				s.emitError(&f.Header, err)
			}
			continue
		}
		if err := s.emit(f); err != nil {
			return err
		}
	}
}

// processPcap decodes DoIP traffic on port 13400 from a pcap or pcapng
// capture.
func (s *session) processPcap(r io.Reader) error {
	rd, err := capture.NewReader(r, capture.Options{
		Dispatcher: s.decoder,
		Limits:     s.cfg.Input.Limits,
		Logger:     s.log,
	})
	if err != nil {
		return err
	}
	for {
		m, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		s.log.Debug().Str("flow", m.Flow).Time("captured", m.Timestamp).Msg("capture message")
		if !m.HasHeader {
			s.emitError(nil, m.Err)
			continue
		}
		if err := s.report(m.Header, m.Result, m.Err); err != nil {
			return err
		}
	}
}

func (s *session) emit(f frame.Frame) error {
	res, err := s.decoder.Decode(f.Header.PayloadType, f.Payload, f.Header.PayloadLength)
	return s.report(f.Header, res, err)
}

func (s *session) report(h doip.Header, res doip.Result, err error) error {
	s.index++
	s.metrics.Observe(h.PayloadType, h.PayloadLength, res, err)
	if err != nil {
		s.writeError(&h, err)
		return nil
	}
	if s.cfg.Output.Format == render.FormatText {
		return render.WriteText(s.out, s.index, h, res)
	}
	s.docs = append(s.docs, render.NewDocument(s.index, h, res))
	return nil
}

// emitError reports input that produced no decode result. h is nil when no
// header was parsed.
func (s *session) emitError(h *doip.Header, err error) {
	s.index++
	if h == nil {
		s.metrics.ObserveUnframed(err)
	} else {
		s.metrics.Observe(h.PayloadType, h.PayloadLength, doip.Result{}, err)
	}
	s.writeError(h, err)
}

func (s *session) writeError(h *doip.Header, err error) {
	s.log.Warn().Err(err).Int("index", s.index).Msg("message not decoded")
	if s.cfg.Output.Format == render.FormatText {
		fmt.Fprintf(s.out, "#%d error: %v\n", s.index, err)
		return
	}
	doc := &render.Document{
		Index:  s.index,
		Fields: []render.FieldView{},
		Error:  err.Error(),
	}
	if h != nil {
		doc.PayloadType = h.PayloadType.String()
		doc.Name = h.PayloadType.Name()
	}
	s.docs = append(s.docs, doc)
}
