package gesture

import (
	"testing"

	"github.com/ayusman/byechat/internal/detector"
)

// canonicalPeaceSign builds the minimal landmark configuration for a peace sign.
func canonicalPeaceSign() detector.HandLandmarks {
	var hand detector.HandLandmarks
	hand.Points[detector.IndexTip].Y = 0.3
	hand.Points[detector.IndexPIP].Y = 0.5
	hand.Points[detector.MiddleTip].Y = 0.3
	hand.Points[detector.MiddlePIP].Y = 0.5
	hand.Points[detector.RingTip].Y = 0.6
	hand.Points[detector.RingPIP].Y = 0.4
	hand.Points[detector.PinkyTip].Y = 0.6
	hand.Points[detector.PinkyPIP].Y = 0.4
	return hand
}

func TestIsPeaceSign_Canonical(t *testing.T) {
	hand := canonicalPeaceSign()

	if !IsPeaceSign(&hand) {
		t.Error("expected canonical configuration to be a peace sign")
	}
}

func TestIsPeaceSign_SingleFingerFlipped(t *testing.T) {
	tests := []struct {
		name string
		tip  int
		pip  int
	}{
		{"index curled", detector.IndexTip, detector.IndexPIP},
		{"middle curled", detector.MiddleTip, detector.MiddlePIP},
		{"ring extended", detector.RingTip, detector.RingPIP},
		{"pinky extended", detector.PinkyTip, detector.PinkyPIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := canonicalPeaceSign()
			hand.Points[tt.tip].Y, hand.Points[tt.pip].Y = hand.Points[tt.pip].Y, hand.Points[tt.tip].Y

			if IsPeaceSign(&hand) {
				t.Errorf("expected %s to break the peace sign", tt.name)
			}
		})
	}
}

func TestIsPeaceSign_EqualHeightsAreNotAMatch(t *testing.T) {
	hand := canonicalPeaceSign()
	hand.Points[detector.RingTip].Y = hand.Points[detector.RingPIP].Y

	if IsPeaceSign(&hand) {
		t.Error("a ring tip level with its PIP joint is not curled")
	}
}

func TestIsPeaceSign_Presets(t *testing.T) {
	peace := detector.PeaceSignLandmarks()
	thumbsUp := detector.ThumbsUpLandmarks()
	openPalm := detector.OpenPalmLandmarks()

	tests := []struct {
		name string
		hand *detector.HandLandmarks
		want bool
	}{
		{"peace sign", &peace, true},
		{"thumbs up", &thumbsUp, false},
		{"open palm", &openPalm, false},
		{"nil hand", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPeaceSign(tt.hand); got != tt.want {
				t.Errorf("IsPeaceSign() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnyPeaceSign(t *testing.T) {
	tests := []struct {
		name  string
		hands []detector.HandLandmarks
		want  bool
	}{
		{"no hands", nil, false},
		{"single non-matching hand", []detector.HandLandmarks{detector.OpenPalmLandmarks()}, false},
		{"single peace sign", []detector.HandLandmarks{detector.PeaceSignLandmarks()}, true},
		{"second hand matches", []detector.HandLandmarks{detector.ThumbsUpLandmarks(), detector.PeaceSignLandmarks()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnyPeaceSign(tt.hands); got != tt.want {
				t.Errorf("AnyPeaceSign() = %v, want %v", got, tt.want)
			}
		})
	}
}
