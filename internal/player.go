package internal

func (p *Player) ResetRoundState() {
	p.LastAnswer = nil
}

func (p *Player) HasAnswered(questionIndex int) bool {
	return p.LastAnswer != nil && p.LastAnswer.QuestionIndex == questionIndex
}

// RecordAnswer stores the answer and applies its points. Score never
// decreases because Points is never negative.
func (p *Player) RecordAnswer(answer Answer) {
	if answer.Points < 0 {
		answer.Points = 0
	}
	p.LastAnswer = &answer
	p.Score += answer.Points
	p.Answered++
	if answer.Correct && !answer.Late {
		p.CorrectAnswers++
	}
}

func (p *Player) ToSnapshot() PlayerSnapshot {
	return PlayerSnapshot{
		Id:        p.Id,
		Name:      p.Name,
		Score:     p.Score,
		Connected: p.Connected,
	}
}
