package models

import (
	"errors"
	"slices"
)

// ErrNoEligibleTeam todos los equipos están excluidos
var ErrNoEligibleTeam = errors.New("no eligible team left in turn order")

// Chooser orden de turnos de la partida; Index apunta al equipo que elige
type Chooser struct {
	Order []string `json:"order"`
	Index int      `json:"index"`
}

// Current devuelve el equipo que tiene el turno, o "" si no hay equipos.
func (c *Chooser) Current() string {
	if len(c.Order) == 0 {
		return ""
	}
	return c.Order[c.Index%len(c.Order)]
}

// Advance pasa el turno al siguiente equipo, de forma cíclica.
func (c *Chooser) Advance() {
	if len(c.Order) == 0 {
		return
	}
	c.Index = (c.Index + 1) % len(c.Order)
}

// AdvanceSkipping avanza hasta el siguiente equipo no excluido. Recorre
// como mucho una vuelta completa.
func (c *Chooser) AdvanceSkipping(excluded []string) error {
	n := len(c.Order)
	for step := 1; step <= n; step++ {
		idx := (c.Index + step) % n
		if !slices.Contains(excluded, c.Order[idx]) {
			c.Index = idx
			return nil
		}
	}
	return ErrNoEligibleTeam
}

// MoveToFront pone al equipo el primero y le da el turno.
func (c *Chooser) MoveToFront(teamID string) {
	order := make([]string, 0, len(c.Order))
	order = append(order, teamID)
	for _, t := range c.Order {
		if t != teamID {
			order = append(order, t)
		}
	}
	c.Order = order
	c.Index = 0
}

// Add añade un equipo al final del orden si no estaba.
func (c *Chooser) Add(teamID string) {
	if !slices.Contains(c.Order, teamID) {
		c.Order = append(c.Order, teamID)
	}
}
