// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

//go:build integration

package startup_test

import (
	"context"
	"encoding/json"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/framekit/framekit/internal/app"
	"github.com/framekit/framekit/internal/plugin"
	"github.com/framekit/framekit/internal/state"
	"github.com/framekit/framekit/internal/transport"
)

// hostHarness drives the container-process side of the transport and
// records every outbound event for later assertions.
type hostHarness struct {
	conn *transport.Conn

	mu     sync.Mutex
	events []transport.Message
}

func newHostHarness() (*transport.Conn, *hostHarness) {
	appSide, hostSide := transport.Pair(nil)
	h := &hostHarness{conn: hostSide}
	for _, event := range []string{"features", "keepFocus", "focus", "loaded", "playOptions"} {
		hostSide.On(event, func(msg transport.Message) {
			h.mu.Lock()
			h.events = append(h.events, msg)
			h.mu.Unlock()
		})
	}
	Expect(hostSide.Connect(context.Background())).To(Succeed())
	return appSide, h
}

func (h *hostHarness) eventNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.events))
	for i, msg := range h.events {
		names[i] = msg.Event
	}
	return names
}

func (h *hostHarness) find(event string) (transport.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, msg := range h.events {
		if msg.Event == event {
			return msg, true
		}
	}
	return transport.Message{}, false
}

func (h *hostHarness) emit(event string, data any) {
	ExpectWithOffset(1, h.conn.Send(event, data)).To(Succeed())
}

func (h *hostHarness) close() {
	_ = h.conn.Close()
}

// phasedPlugin records the order its lifecycle hooks fire in a shared log
// and attaches the listeners it is told to.
type phasedPlugin struct {
	name     string
	priority int
	log      *callLog
	channels []string
	preload  func(ctx context.Context, host plugin.Host) error
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (p *phasedPlugin) Name() string    { return p.name }
func (p *phasedPlugin) Version() string { return "1.0.0" }
func (p *phasedPlugin) Priority() int   { return p.priority }

func (p *phasedPlugin) Preload(ctx context.Context, host plugin.Host) error {
	p.log.record(p.name + ":preload")
	if p.preload != nil {
		return p.preload(ctx, host)
	}
	return nil
}

func (p *phasedPlugin) Init(host plugin.Host) error {
	p.log.record(p.name + ":init")
	ch := host.Channels()
	for _, name := range p.channels {
		switch name {
		case state.ChannelPause:
			ch.Pause.On(func(bool) {})
		case state.ChannelCaptionsMuted:
			ch.CaptionsMuted.On(func(bool) {})
		default:
			if vol, ok := ch.Volume(name); ok {
				vol.On(func(float64) {})
			}
		}
	}
	return nil
}

func (p *phasedPlugin) Start(plugin.Host) error {
	p.log.record(p.name + ":start")
	return nil
}

var _ = Describe("Shell startup", func() {
	var (
		msgr *transport.Conn
		host *hostHarness
		log  *callLog
	)

	BeforeEach(func() {
		msgr, host = newHostHarness()
		log = &callLog{}
	})

	AfterEach(func() {
		_ = msgr.Close()
		host.close()
	})

	Context("with a full feature set and complete listeners", func() {
		var a *app.Application

		BeforeEach(func() {
			a = app.New(msgr, state.FeatureFlags{Captions: true, Sound: true, Music: true, VO: true, SFX: true})

			Expect(a.Use(&phasedPlugin{
				name: "audio", priority: 10, log: log,
				channels: []string{
					state.ChannelPause,
					state.ChannelSoundVolume,
					state.ChannelMusicVolume,
					state.ChannelVOVolume,
					state.ChannelSFXVolume,
				},
			})).To(Succeed())
			Expect(a.Use(&phasedPlugin{
				name: "captions", priority: 20, log: log,
				channels: []string{state.ChannelCaptionsMuted},
			})).To(Succeed())
		})

		It("runs the lifecycle phases in registry order and declares readiness", func() {
			Expect(a.Startup(context.Background())).To(Succeed())
			Expect(a.Ready()).To(BeTrue())

			calls := log.snapshot()
			Expect(calls[:2]).To(ConsistOf("audio:preload", "captions:preload"))
			Expect(calls[2:]).To(Equal([]string{"audio:init", "captions:init", "audio:start", "captions:start"}))
		})

		It("announces features, requests play options, and signals loaded in order", func() {
			Expect(a.Startup(context.Background())).To(Succeed())

			Eventually(host.eventNames).Should(Equal([]string{"features", "keepFocus", "playOptions", "loaded"}))

			features, ok := host.find("features")
			Expect(ok).To(BeTrue())
			var flags map[string]bool
			Expect(json.Unmarshal(features.Data, &flags)).To(Succeed())
			Expect(flags).To(HaveKeyWithValue("sound", true))
			Expect(flags).To(HaveKeyWithValue("captions", true))

			fetch, ok := host.find("playOptions")
			Expect(ok).To(BeTrue())
			Expect(fetch.Fetch).To(BeTrue())
		})

		It("applies host events to channels after startup", func() {
			Expect(a.Startup(context.Background())).To(Succeed())

			host.emit("pause", true)
			Eventually(a.Channels().Pause.Get).Should(BeTrue())

			host.emit("musicVolume", 0.25)
			Eventually(a.Channels().MusicVolume.Get).Should(Equal(0.25))
		})

		It("translates legacy mute toggles into volume changes", func() {
			Expect(a.Startup(context.Background())).To(Succeed())

			host.emit("soundVolume", 0.8)
			Eventually(a.Channels().SoundVolume.Get).Should(Equal(0.8))

			host.emit("soundMuted", true)
			Eventually(a.Channels().SoundVolume.Get).Should(Equal(0.0))

			host.emit("soundMuted", false)
			Eventually(a.Channels().SoundVolume.Get).Should(Equal(0.8))
		})

		It("fills play options from the host fetch reply", func() {
			Expect(a.Startup(context.Background())).To(Succeed())

			fetch, ok := host.find("playOptions")
			Expect(ok).To(BeTrue())
			Expect(fetch.Fetch).To(BeTrue())

			host.emit("playOptions", map[string]any{"mode": "tutorial"})
			Eventually(func() map[string]any {
				return a.Channels().PlayOptions.Get()
			}).Should(HaveKeyWithValue("mode", "tutorial"))
		})
	})

	Context("when a feature's listeners are never attached", func() {
		It("fails startup and withholds the loaded signal", func() {
			a := app.New(msgr, state.FeatureFlags{Captions: true, Sound: true})

			// Only the pause obligation is met.
			Expect(a.Use(&phasedPlugin{
				name: "partial", priority: 0, log: log,
				channels: []string{state.ChannelPause},
			})).To(Succeed())

			err := a.Startup(context.Background())
			Expect(err).To(HaveOccurred())
			oopsErr, ok := oops.AsOops(err)
			Expect(ok).To(BeTrue())
			Expect(oopsErr.Code()).To(Equal("STARTUP_MISSING_LISTENERS"))
			Expect(a.Ready()).To(BeFalse())

			Consistently(func() bool {
				_, ok := host.find("loaded")
				return ok
			}).Should(BeFalse())
		})
	})

	Context("when a plugin's preload fails", func() {
		It("drops that plugin but starts the rest", func() {
			a := app.New(msgr, state.FeatureFlags{Sound: true})

			Expect(a.Use(&phasedPlugin{
				name: "flaky", priority: 10, log: log,
				preload: func(context.Context, plugin.Host) error {
					return context.DeadlineExceeded
				},
			})).To(Succeed())
			Expect(a.Use(&phasedPlugin{
				name: "steady", priority: 20, log: log,
				channels: []string{state.ChannelPause, state.ChannelSoundVolume},
			})).To(Succeed())

			Expect(a.Startup(context.Background())).To(Succeed())

			calls := log.snapshot()
			Expect(calls).To(ContainElement("flaky:preload"))
			Expect(calls).NotTo(ContainElement("flaky:init"))
			Expect(calls).NotTo(ContainElement("flaky:start"))
			Expect(calls).To(ContainElement("steady:start"))

			_, failed := a.Registry().PreloadFailure("flaky")
			Expect(failed).To(BeTrue())
		})
	})
})
