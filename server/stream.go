package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"agentic_research_writer/pipeline"
)

const (
	writeWait = 10 * time.Second
	// 一次运行最多 7 个事件帧加 1 个结束帧。
	streamBuffer = 16
)

// Frame types sent over /api/stream.
const (
	FrameEvent  = "event"
	FrameResult = "result"
	FrameError  = "error"
)

type streamReq struct {
	Topic string `json:"topic"`
}

// Frame is one websocket message. Event frames carry Stage and Delta; the
// final frame is either a result (Run) or an error.
type Frame struct {
	Type     string          `json:"type"`
	RunID    string          `json:"run_id,omitempty"`
	Stage    pipeline.Stage  `json:"stage,omitempty"`
	Delta    *pipeline.Delta `json:"delta,omitempty"`
	Run      *Run            `json:"run,omitempty"`
	Error    string          `json:"error,omitempty"`
	Messages []string        `json:"messages,omitempty"`
}

// handleStream 升级为 websocket：读取一次 {"topic"}，逐阶段推送事件，最后推送结果或错误。
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var req streamReq
	if err := conn.ReadJSON(&req); err != nil {
		s.writeFrame(conn, Frame{Type: FrameError, Error: "invalid request: " + err.Error()})
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		s.writeFrame(conn, Frame{Type: FrameError, Error: pipeline.ErrEmptyTopic.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()
	// 客户端断开时取消运行。
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	frames := make(chan Frame, streamBuffer)
	writerDone := make(chan struct{})
	go s.writeFrames(conn, frames, cancel, writerDone)

	run := s.store.create(topic)
	res, err := s.orch.Run(ctx, topic, func(e pipeline.Event) {
		s.store.progress(run.ID, e)
		delta := e.Delta
		// 只入队不等待写出，慢客户端不会拖住下一阶段。
		select {
		case frames <- Frame{Type: FrameEvent, RunID: run.ID, Stage: e.Stage, Delta: &delta}:
		default:
			s.logger.Warn("stream buffer full, dropping client", zap.String("run_id", run.ID))
			cancel()
		}
	})
	run = s.store.finish(run.ID, res, err)

	var final *Frame
	switch {
	case err == nil:
		final = &Frame{Type: FrameResult, RunID: run.ID, Run: &run}
	case errors.Is(err, context.Canceled):
		s.logger.Info("stream client went away", zap.String("run_id", run.ID))
	default:
		final = &Frame{
			Type:     FrameError,
			RunID:    run.ID,
			Stage:    run.FailedStage,
			Error:    err.Error(),
			Messages: run.State.Messages,
		}
	}
	if final != nil {
		select {
		case frames <- *final:
		default:
			s.logger.Warn("stream buffer full, final frame dropped", zap.String("run_id", run.ID))
		}
	}
	close(frames)
	<-writerDone
	if final != nil && final.Type == FrameResult {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(writeWait))
	}
}

// writeFrames 是连接上唯一的写者；写失败时取消运行并丢弃剩余帧。
func (s *Server) writeFrames(conn *websocket.Conn, frames <-chan Frame, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	for f := range frames {
		if err := s.writeFrame(conn, f); err != nil {
			cancel()
			for range frames {
			}
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
