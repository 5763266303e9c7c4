package ui

import (
	"github.com/nao7sep/downScale/internal/batch"
	"github.com/nao7sep/downScale/internal/progress"
)

type classifiedMsg struct {
	Report []batch.Classification
	Err    error
}

type jobUpdateMsg struct {
	U progress.Update
}

type jobLogMsg struct {
	L progress.Log
}

type jobResultMsg struct {
	R progress.Result
}

type allDoneMsg struct{}
