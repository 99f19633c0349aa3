package signal

// ApplyEnvelope shapes s with a linear ADSR envelope. Times are in
// milliseconds and sustain is a level in [0,1]. Segments that do not fit in
// the signal are cut short; the release always ends on the last sample.
func (s Signal) ApplyEnvelope(attackMs, decayMs, sustain, releaseMs float64) Signal {
	n := len(s)
	toSamples := func(ms float64) int {
		v := int(ms / 1000 * SampleRate)
		if v < 0 {
			return 0
		}
		return v
	}

	attack := min(toSamples(attackMs), n)
	decay := min(toSamples(decayMs), n-attack)
	release := min(toSamples(releaseMs), n-attack-decay)
	releaseStart := n - release

	out := make(Signal, n)
	for i, v := range s {
		var gain float64
		switch {
		case i < attack:
			gain = float64(i) / float64(attack)
		case i < attack+decay:
			gain = 1 - (1-sustain)*float64(i-attack)/float64(decay)
		case i < releaseStart:
			gain = sustain
		default:
			gain = sustain * (1 - float64(i-releaseStart)/float64(release))
		}
		out[i] = v * float32(gain)
	}
	return out
}
