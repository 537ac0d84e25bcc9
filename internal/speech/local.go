package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Player renders already-synthesized audio.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// LocalVoice speaks text without the hosted provider.
type LocalVoice interface {
	Say(ctx context.Context, text string) error
}

// commandPlayer pipes audio bytes into the first available system player.
type commandPlayer struct {
	path string
	args []string
}

var playerCandidates = []struct {
	name string
	args []string
}{
	{"mpv", []string{"--no-video", "--really-quiet", "-"}},
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-"}},
	{"mpg123", []string{"-q", "-"}},
}

// NewCommandPlayer probes the PATH for a usable audio player. Returns nil
// when none is installed; callers treat a nil player as "cannot play".
func NewCommandPlayer() Player {
	for _, c := range playerCandidates {
		if path, err := exec.LookPath(c.name); err == nil {
			return &commandPlayer{path: path, args: c.args}
		}
	}
	return nil
}

func (p *commandPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.path, p.args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playing audio with %s: %w", p.path, err)
	}
	return nil
}

// commandVoice shells out to a local text-to-speech program.
type commandVoice struct {
	path string
}

var voiceCandidates = []string{"say", "espeak-ng", "espeak"}

// NewCommandVoice probes the PATH for a local speech program. Returns nil
// when none is installed.
func NewCommandVoice() LocalVoice {
	for _, name := range voiceCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return &commandVoice{path: path}
		}
	}
	return nil
}

func (v *commandVoice) Say(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, v.path, text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speaking with %s: %w", v.path, err)
	}
	return nil
}
