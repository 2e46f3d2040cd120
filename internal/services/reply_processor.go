package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/providers/llm"
	"github.com/yoockh/innkeeper/internal/utils"
)

// ReplyProcessor answers one coalesced batch: it records the flush, asks the
// model with the conversation's context and sends the answer back to the
// guest. It is the buffer.Processor of the running service.
type ReplyProcessor struct {
	Flushes  FlushService
	Messages MessageService
	Contexts ContextAssembler
	LLM      llm.Provider
	Router   buffer.Router
	Logger   *logrus.Logger
}

var _ buffer.Processor = (*ReplyProcessor)(nil)

func (p *ReplyProcessor) Process(ctx context.Context, conversationID, text string, route buffer.Route) (buffer.Reply, error) {
	const op = "ReplyProcessor.Process"

	if p.LLM == nil || p.Router == nil || p.Contexts == nil {
		return buffer.Reply{}, utils.E(utils.CodeInternal, op, "reply processor is not wired", nil)
	}

	start := time.Now()
	info, _ := buffer.FlushFromContext(ctx)
	log := p.logger().WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"flush_id":        info.ID,
	})

	if p.Flushes != nil {
		rec, err := p.Flushes.Start(ctx, info.ID, conversationID, text, info.Fragments)
		if err != nil {
			log.WithError(err).Warn("flush record not stored")
		} else {
			info.ID = rec.FlushID
		}
	}

	reply, err := p.answer(ctx, conversationID, text, info, route, log)

	if p.Flushes != nil && info.ID != "" {
		// the run context may be past its deadline
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if ferr := p.Flushes.Finish(fctx, info.ID, reply.Text, err, time.Since(start)); ferr != nil {
			log.WithError(ferr).Warn("flush record not updated")
		}
		cancel()
	}
	return reply, err
}

func (p *ReplyProcessor) answer(ctx context.Context, conversationID, text string, info buffer.FlushInfo, route buffer.Route, log *logrus.Entry) (buffer.Reply, error) {
	const op = "ReplyProcessor.Process"

	pc, err := p.Contexts.Build(ctx, conversationID, route)
	if err != nil {
		return buffer.Reply{}, err
	}

	answer, err := llm.Collect(ctx, p.LLM, pc.SystemPrompt(), pc.Prompt(text))
	if err != nil {
		return buffer.Reply{}, utils.E(utils.CodeUnavailable, op, "model did not answer", err)
	}
	if answer == "" {
		return buffer.Reply{}, utils.E(utils.CodeInternal, op, "model returned an empty answer", nil)
	}

	if err := p.Router.Notify(ctx, route, answer); err != nil {
		return buffer.Reply{}, utils.E(utils.CodeUnavailable, op, "failed to deliver reply", err)
	}

	if p.Messages != nil {
		if _, err := p.Messages.Append(ctx, conversationID, models.RoleGuest, text, info.Fragments, nil); err != nil {
			log.WithError(err).Warn("guest message not stored")
		}
		if _, err := p.Messages.Append(ctx, conversationID, models.RoleAssistant, answer, 0, nil); err != nil {
			log.WithError(err).Warn("assistant message not stored")
		}
	}
	p.Contexts.Invalidate(ctx, conversationID)

	return buffer.Reply{Text: answer}, nil
}

func (p *ReplyProcessor) logger() *logrus.Logger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}
