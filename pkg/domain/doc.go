/*
Package domain contains the core domain models for the ternlab simulation.

It defines the fundamental entities of the lab, such as Cells, Grids, Thresholds
and the Simulation State. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Cell: A ternary value, one of ⊖ (-1), neutral (0) or ⊕ (+1).
  - Grid: An immutable NxN row-major matrix of cells.
  - Thresholds: Neighbor counts required to flip a cell to each polarity.
  - SimulationState: Grid, thresholds, step counter and entropy history of one lab.
  - Snapshot: The serializable form of a SimulationState.
*/
package domain
