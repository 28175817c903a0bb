package prompts

import "fmt"

// CodeMode selects the instruction attached to a code-analysis request.
type CodeMode string

const (
	CodeExplain  CodeMode = "explain"
	CodeFindBug  CodeMode = "find_bug"
	CodeRefactor CodeMode = "refactor"
	CodeReview   CodeMode = "review"
)

// TaskMode selects the instruction attached to a task-description request.
type TaskMode string

const (
	TaskInstruct  TaskMode = "instruct"
	TaskImplement TaskMode = "implement"
)

const codeExplainInstruction = `You should analyse, explain and interpret it.

Your response should consist of two parts:
1. Textual description of what the code does in general.
2. The very same code with inline comments where you explain everything step by step.`

const codeFindBugInstruction = `Analyse it.

Your response instructions:
1. If there are no bugs, confirm to the user that you have not found any potential problems in the code.
2. If there are some issues, highlight what they are and how to fix them. In this case, you should:
    - Provide textual description of all bugs and problems that you have found
    - Provide the fixed version of the code with inline comments about what you have changed`

const codeRefactorInstruction = `Refactor it to improve readability, efficiency, and maintainability.
Identify areas where the code can be simplified, optimized, and made more efficient.
Consider breaking down complex functions into smaller, more modular ones,
eliminating redundant code, and adhering to best practices and coding conventions.
You may as well split the code into several separate modules if needed.

In your response, be sure to provide the user with:
1. Detailed description of the proposed changes.
2. Refactored version of the code.`

const codeReviewInstruction = `Review the code and provide detailed feedback on the following aspects:
- Syntax and logic errors
- Performance bottlenecks
- Security vulnerabilities
- Coding standard and naming consistencies
- Adherence to best practices
- Overall design and architecture
- Scalability
- Time and memory complexity
- Readability and maintainability
- Platform-specific issues
- Presence of unit tests

This list is not exhaustive. Provide a thorough analysis and any recommendations for improvements.`

const taskInstructInstruction = `Based on the task description, generate a set of clear, concise, and actionable instructions
that will guide someone through the completion of the task. The instructions should be easy to follow
and should cover all necessary steps, tools, and considerations to ensure successful completion.

Ensure the following:
1. Break down the task into sequential steps.
2. Use simple and precise language.
3. Include any prerequisites or preparation needed before starting the task.
4. Mention any specific tools, materials, libraries, or resources required.
5. Highlight any important tips or warnings.
6. Ensure the instructions are logically ordered and easy to understand.`

const taskImplementInstruction = `Your should write code based on this description.

Ensure the following:
1. Your code is clean, well-documented, and adheres to best practices
2. You use the appropriate programming language as inferred from the task description.
    If the language is explicitly mentioned, use that language.
3. Your code is modular, with functions/classes as needed.
4. There are comments within the code to explain key sections and logic.
    If applicable, provide a brief documentation or usage guide.
5. Your code handles errors to manage potential exceptions or edge cases.
6. Your code is optimized for performance where applicable.
7. You have included a set of test cases or a simple testing framework to validate the functionality.`

// Code builds the message list for a one-shot code-analysis request.
func Code(code string, mode CodeMode) ([]Message, error) {
	var instruction string
	switch mode {
	case CodeExplain:
		instruction = codeExplainInstruction
	case CodeFindBug:
		instruction = codeFindBugInstruction
	case CodeRefactor:
		instruction = codeRefactorInstruction
	case CodeReview:
		instruction = codeReviewInstruction
	default:
		return nil, fmt.Errorf("prompts: unknown code mode %q", mode)
	}
	system := fmt.Sprintf(
		"You are a virtual assistant for a data scientist. They will send you some code. %s", instruction)
	return []Message{System(system), User(code)}, nil
}

// Task builds the message list for a one-shot task-description request.
func Task(task string, mode TaskMode) ([]Message, error) {
	var instruction string
	switch mode {
	case TaskInstruct:
		instruction = taskInstructInstruction
	case TaskImplement:
		instruction = taskImplementInstruction
	default:
		return nil, fmt.Errorf("prompts: unknown task mode %q", mode)
	}
	system := fmt.Sprintf(
		"You are a virtual assistant for a data scientist.\nIn their message, they will send you a description of their task.\n%s",
		instruction)
	return []Message{System(system), User(task)}, nil
}

// AlgoTask builds the coached-dialog prompt for an algorithm exercise.
func AlgoTask(level, difficulty, topic string, transcript []Message) []Message {
	system := fmt.Sprintf(`Представь, что ты опытный IT-рекрутер, проводящий техническое собеседование
с кандидатом на позицию %s DS-разработчика.
Сформулируй задачу на алгоритмы (описание условий, пример данных на вход и выход)
и задай по ней вопросы (память и время выполнения) на тему %s уровня %s
без подсказок и не показывай правильный ответ, пока пользователь не отправит свое решение.
Разбери решение пользователя, когда он тебе ответит.`, level, topic, difficulty)
	return withSystem(system, transcript)
}

// MLTask builds the coached-dialog prompt for a machine-learning exercise.
func MLTask(level, difficulty, topic string, transcript []Message) []Message {
	system := fmt.Sprintf(`Представь, что ты опытный IT-рекрутер, проводящий техническое собеседование
с кандидатом на позицию %s DS-разработчика.
Сформулируй задачу по машинному обучению (постановка, описание данных, ожидаемый результат)
и задай по ней вопросы на тему %s уровня %s
без подсказок и не показывай правильный ответ, пока пользователь не отправит свое решение.
Разбери решение пользователя, когда он тебе ответит.`, level, topic, difficulty)
	return withSystem(system, transcript)
}

// Interview builds the coached-dialog prompt for a mock interview.
func Interview(level, difficulty, topic string, transcript []Message) []Message {
	system := fmt.Sprintf(`Представь, что ты опытный IT-рекрутер, проводящий техническое собеседование
с кандидатом на позицию %s DS-разработчика. Вопросы должны быть по теме: %s.
Сформулируй две задачи на алгоритмы (описание условий, пример данных на вход и выход)
уровня %s и серию вопросов уровня %s
без подсказок и не показывай правильный ответ, пока пользователь не отправит свое решение.
Разбери решение пользователя, когда он тебе ответит.`, level, topic, difficulty, difficulty)
	return withSystem(system, transcript)
}

// Quiz builds the coached-dialog prompt for a multiple-choice test.
func Quiz(level, difficulty, topic string, transcript []Message) []Message {
	system := fmt.Sprintf(`Выступая в роли опытного IT-рекрутера, вы столкнулись с задачей помочь %s
DS-разработчику в подготовке к теме %s различного уровня сложности:
%s. Вам необходимо предоставить тест с вариантами ответов,
который поможет им оценить свои знания и умения.
Важно, чтобы тест был разнообразным и не требовал подсказок.
Правильные ответы не следует показывать до тех пор, пока пользователь не отправит свое решение.
Разбери решение пользователя, когда он тебе ответит.`, level, topic, difficulty)
	return withSystem(system, transcript)
}

// Roadmap builds the coached-dialog prompt for a study plan.
func Roadmap(level, difficulty, topic string, transcript []Message) []Message {
	system := fmt.Sprintf(`Выступая в роли опытного IT-рекрутера, вы столкнулись с задачей помочь
%s DS-разработчику в подготовке к теме %s уровня сложности:
%s. Вам необходимо предоставить план с пунктами, которые
помогут им освоить эту тему. Важно, чтобы пункты были разнообразными и не требовали ссылок.`,
		level, topic, difficulty)
	return withSystem(system, transcript)
}

// Psycho builds the psychological-support dialog prompt.
func Psycho(transcript []Message) []Message {
	system := `Представь, что ты опытный психолог, и к тебе пришел DS-разработчик.
И просит помочь ему подготовиться к собеседованию.
Ответь на его вопросы и помоги ему.`
	return withSystem(system, transcript)
}

// MemeReaction builds the chat-reaction dialog prompt for a described meme.
func MemeReaction(transcript []Message) []Message {
	system := `Представьте, что вам прислали в чат мем. Вам нужно отреагировать на него в чате так, чтобы
показать, что вы его поняли.`
	return withSystem(system, transcript)
}

// MemeImage builds the vision request explaining why a meme is funny.
func MemeImage(image []byte) []Message {
	prompt := `Представь, что ты столкнулся с мемом, который вызывает у тебя смех. Важно не описать
картинку, а понять, почему этот мем смешной. Ответь коротко на следующие вопросы: Какие элементы мема
вызывают смех? Какая основная идея или шутка заложена в меме? Есть ли какие-либо культурные или
интернет-отсылки, которые следует знать, чтобы понять мем? Ответ не структурируй.`
	return []Message{{Role: RoleUser, Content: prompt, Image: image}}
}

// EDA builds the streaming dataset-analysis request over a textual preview.
func EDA(preview string) []Message {
	system := `You are a virtual assistant for a data scientist. They will send you a preview of a dataset.
Perform an exploratory data analysis based on the preview: describe the columns and their likely types,
point out missing or suspicious values, suggest useful aggregations and visualizations,
and list the next steps you would take before modeling.`
	return []Message{System(system), User(preview)}
}

func withSystem(system string, transcript []Message) []Message {
	out := make([]Message, 0, len(transcript)+1)
	out = append(out, System(system))
	out = append(out, transcript...)
	return out
}
