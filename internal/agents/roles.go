package agents

import "github.com/diffcouncil/diffcouncil/internal/types"

// BusinessAnalyst evaluates functional and user-facing impact.
func BusinessAnalyst() Agent {
	return Agent{
		Role: types.BusinessAnalyst,
		Name: "Business Analyst",
		RAGQueries: [3]string{
			"functional or user-facing changes",
			"API or interface changes",
			"configuration or business-rule changes",
		},
	}
}

// QAEngineer evaluates test coverage and quality-assurance risk.
func QAEngineer() Agent {
	return Agent{
		Role: types.QAEngineer,
		Name: "QA Engineer",
		RAGQueries: [3]string{
			"test file changes",
			"new test cases or assertions",
			"business logic changes that need testing",
		},
	}
}

// DeveloperAuthor evaluates implementation effort and functional delivery.
func DeveloperAuthor() Agent {
	return Agent{
		Role: types.DeveloperAuthor,
		Name: "Developer (Author)",
		RAGQueries: [3]string{
			"source changes excluding tests and docs",
			"refactoring or code organization",
			"new features or functionality",
		},
	}
}

// SeniorArchitect evaluates structural soundness and technical debt.
func SeniorArchitect() Agent {
	return Agent{
		Role: types.SeniorArchitect,
		Name: "Senior Architect",
		RAGQueries: [3]string{
			"architectural or structural changes",
			"data model or schema changes",
			"complex algorithms or technical-debt areas",
		},
	}
}

// DeveloperReviewer evaluates code quality and maintainability.
func DeveloperReviewer() Agent {
	return Agent{
		Role: types.DeveloperReviewer,
		Name: "Developer (Reviewer)",
		RAGQueries: [3]string{
			"code style and formatting changes",
			"code quality issues",
			"complex logic needing review",
		},
	}
}

// Roster returns the five agents in fixed dispatch order.
func Roster() []Agent {
	return []Agent{
		BusinessAnalyst(),
		QAEngineer(),
		DeveloperAuthor(),
		SeniorArchitect(),
		DeveloperReviewer(),
	}
}
