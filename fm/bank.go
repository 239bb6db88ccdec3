package fm

// op is shorthand for building operator parameters in the default bank.
func op(mult, tl, ar, dr, sl, rr, wave uint8) OpParams {
	return OpParams{
		Mult:       mult,
		TotalLevel: tl,
		Attack:     ar,
		Decay:      dr,
		Sustain:    sl,
		Release:    rr,
		Waveform:   wave,
		Sustaining: true,
	}
}

// DefaultBank returns the built-in instrument set.
func DefaultBank() []Instrument {
	bank := []Instrument{
		{
			Name: "Piano",
			Pairs: [2]OpPair{{
				Feedback: 6, Panning: PanCenter,
				Mod: op(1, 24, 15, 4, 6, 6, 0),
				Car: op(1, 0, 15, 2, 7, 6, 0),
			}},
		},
		{
			Name: "Bass",
			Pairs: [2]OpPair{{
				Feedback: 5, Panning: PanCenter,
				Mod: op(0, 18, 15, 5, 8, 8, 1),
				Car: op(1, 0, 15, 3, 4, 8, 0),
			}},
		},
		{
			Name:   "Strings",
			FourOp: true,
			Pairs: [2]OpPair{
				{Feedback: 3, Connection: ConnectionFM, Panning: PanCenter,
					Mod: op(1, 30, 6, 2, 2, 5, 0),
					Car: op(2, 28, 7, 2, 2, 5, 0),
				},
				{Connection: ConnectionFM, Panning: PanCenter,
					Mod: op(1, 26, 6, 2, 2, 5, 0),
					Car: op(1, 0, 6, 1, 2, 5, 0),
				},
			},
		},
		{
			Name: "Organ",
			Pairs: [2]OpPair{{
				Connection: ConnectionAdditive, Panning: PanCenter,
				Mod: op(2, 8, 15, 0, 0, 10, 0),
				Car: op(1, 4, 15, 0, 0, 10, 0),
			}},
		},
		{
			Name:        "Lead",
			DoubleVoice: true,
			FineTune:    8,
			Pairs: [2]OpPair{
				{Feedback: 4, Panning: PanLeft,
					Mod: op(1, 20, 14, 3, 3, 7, 2),
					Car: op(1, 2, 14, 1, 2, 7, 0),
				},
				{Feedback: 4, Panning: PanRight,
					Mod: op(1, 20, 14, 3, 3, 7, 2),
					Car: op(2, 6, 14, 1, 2, 7, 0),
				},
			},
		},
		{
			Name:   "Bell",
			FourOp: true,
			Pairs: [2]OpPair{
				{Connection: ConnectionAdditive, Panning: PanCenter,
					Mod: op(1, 6, 15, 4, 10, 4, 0),
					Car: op(7, 20, 15, 5, 12, 4, 0),
				},
				{Connection: ConnectionAdditive, Panning: PanCenter,
					Mod: op(3, 4, 15, 3, 10, 4, 0),
					Car: op(1, 2, 15, 3, 10, 4, 0),
				},
			},
		},
		{
			Name:      "Kick",
			FixedNote: 36,
			Pairs: [2]OpPair{{
				Feedback: 7, Panning: PanCenter,
				Mod: op(0, 10, 15, 8, 15, 9, 0),
				Car: op(0, 0, 15, 6, 15, 8, 0),
			}},
		},
	}
	// The kick decays on its own.
	bank[6].Pairs[0].Car.Sustaining = false
	bank[6].Pairs[0].Mod.Sustaining = false
	return bank
}

// DemoSong returns a short two-pattern song using the default bank.
func DemoSong() *SongData {
	song := &SongData{
		Title:       "Demo",
		BPM:         125,
		TicksPerRow: 6,
		Instruments: DefaultBank(),
		Orders:      []uint16{0, 1, 0},
	}
	for i := range song.Channels {
		song.Channels[i].Octave = 4
		song.Channels[i].Step = 1
	}

	note := func(n uint8, inst uint16) SongStep {
		s := EmptyStep
		s.Note = n
		s.Instrument = inst
		return s
	}
	stop := EmptyStep
	stop.Note = NoteStop

	a := NewPattern("Intro", 16, 4)
	a.Color = 0x3366CC
	melody := []uint8{60, 64, 67, 72, 67, 64, 60, 55}
	for i, n := range melody {
		a.SetStep(i*2, 0, note(n, 0))
	}
	for row := 0; row < 16; row += 4 {
		a.SetStep(row, 1, note(36, 1))
		a.SetStep(row, 3, note(0, 6))
	}
	pad := note(48, 2)
	pad.Volume = 40
	a.SetStep(0, 2, pad)
	fade := EmptyStep
	fade.EffectType, fade.EffectVal = EffVolSlide, 0x01
	for row := 8; row < 16; row++ {
		a.SetStep(row, 2, fade)
	}

	b := NewPattern("Bridge", 16, 4)
	b.Color = 0xCC6633
	lead := note(67, 4)
	lead.EffectType, lead.EffectVal = EffPortaUp, 2
	b.SetStep(0, 0, lead)
	b.SetStep(6, 0, stop)
	bell := note(72, 5)
	bell.Panning = 10
	b.SetStep(8, 0, bell)
	right := EmptyStep
	right.EffectType, right.EffectVal = EffSetPanning, 54
	b.SetStep(12, 0, right)
	for row := 0; row < 16; row += 2 {
		b.SetStep(row, 1, note(uint8(31+row%4), 1))
	}
	organ := note(55, 3)
	organ.EffectType, organ.EffectVal = EffSetVolume, 48
	b.SetStep(0, 2, organ)
	b.SetStep(15, 2, stop)

	song.Patterns = []*Pattern{a, b}
	return song
}
