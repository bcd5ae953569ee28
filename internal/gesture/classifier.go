// Package gesture classifies hand poses into trigger gestures.
package gesture

import (
	"github.com/ayusman/byechat/internal/detector"
)

// fingerJoints pairs a fingertip with its PIP joint.
type fingerJoints struct {
	tip int
	pip int
}

var (
	indexFinger  = fingerJoints{tip: detector.IndexTip, pip: detector.IndexPIP}
	middleFinger = fingerJoints{tip: detector.MiddleTip, pip: detector.MiddlePIP}
	ringFinger   = fingerJoints{tip: detector.RingTip, pip: detector.RingPIP}
	pinkyFinger  = fingerJoints{tip: detector.PinkyTip, pip: detector.PinkyPIP}
)

// extended reports whether the fingertip is above its PIP joint.
// Image Y grows downward, so "above" means a smaller Y.
func extended(hand *detector.HandLandmarks, f fingerJoints) bool {
	return hand.Points[f.tip].Y < hand.Points[f.pip].Y
}

// curled reports whether the fingertip is below its PIP joint.
func curled(hand *detector.HandLandmarks, f fingerJoints) bool {
	return hand.Points[f.tip].Y > hand.Points[f.pip].Y
}

// IsPeaceSign reports whether a hand shows index and middle fingers
// extended with ring and pinky curled.
func IsPeaceSign(hand *detector.HandLandmarks) bool {
	if hand == nil {
		return false
	}

	return extended(hand, indexFinger) &&
		extended(hand, middleFinger) &&
		curled(hand, ringFinger) &&
		curled(hand, pinkyFinger)
}

// AnyPeaceSign reports whether at least one of the hands is a peace sign.
// Evaluation stops at the first match.
func AnyPeaceSign(hands []detector.HandLandmarks) bool {
	for i := range hands {
		if IsPeaceSign(&hands[i]) {
			return true
		}
	}
	return false
}
