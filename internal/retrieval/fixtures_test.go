package retrieval

import (
	"context"
	"errors"

	"github.com/hyperjump/gitaguide/internal/models"
)

func fixtureVerses() []*models.Verse {
	return []*models.Verse{
		{Chapter: 6, Verse: 35, Translation: "The mind is restless, but it is restrained by practice and detachment.",
			Commentary: "Steady practice (abhyasa) and dispassion calm the mind."},
		{Chapter: 2, Verse: 47, Translation: "You have a right to perform your prescribed duty, but you are not entitled to the fruits of your actions.",
			Commentary:   "This verse is the essence of karma yoga: act without attachment to results.",
			WordMeanings: "karmani - in prescribed duties; phaleshu - in the fruits"},
		{Chapter: 1, Verse: 16, Label: "16-18", Translation: "Yudhishthira blew the Anantavijaya conch; Nakula and Sahadeva blew the Sughosha and Manipushpaka.",
			Commentary: ""},
		{Chapter: 2, Verse: 14, Translation: "The contacts of the senses with their objects give rise to cold and heat, pleasure and pain.",
			Commentary: "Endure them patiently; they come and go and are impermanent."},
		{Chapter: 4, Verse: 10, Translation: "Freed from attachment, fear and anger, absorbed in Me, many have attained My being.",
			Commentary: "One must overcome fear through steady practice."},
		{Chapter: 2, Verse: 66, Translation: "For one who is not connected there is no peace, and how can there be happiness without peace?",
			Commentary: "Inner peace comes from a disciplined mind."},
		{Chapter: 12, Verse: 15, Translation: "He by whom the world is not agitated and who is not agitated by the world, who is free from joy, anger, fear and anxiety, is dear to Me."},
	}
}

func fixtureSnapshot() *Snapshot {
	snap, err := NewSnapshot(fixtureVerses())
	if err != nil {
		panic(err)
	}
	return snap
}

type staticStore struct {
	verses []*models.Verse
	err    error
}

func (s *staticStore) AllVerses(ctx context.Context) ([]*models.Verse, error) {
	return s.verses, s.err
}

var errStoreDown = errors.New("connection refused")
